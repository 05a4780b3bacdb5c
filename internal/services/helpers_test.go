package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bybo/bybo-be/internal/auth"
	"github.com/bybo/bybo-be/internal/database"
	"github.com/bybo/bybo-be/internal/models"
	"github.com/stretchr/testify/require"
)

// testEnv bundles the services over one temporary database.
type testEnv struct {
	db       *sql.DB
	users    *UserService
	auth     *AuthService
	tokens   *auth.TokenManager
	listings *ListingService
	ledger   *Ledger
	events   *EventService
	notifier *recordingNotifier
	bookings *BookingService
	messages *MessageService
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })

	files := &memoryFileStore{}
	env := &testEnv{
		db:       db,
		users:    NewUserService(db),
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
		listings: NewListingService(db, files, time.Minute),
		ledger:   NewLedger(db),
		events:   NewEventService(db),
		notifier: &recordingNotifier{},
		messages: NewMessageService(db),
	}
	t.Cleanup(env.listings.Stop)
	env.auth = NewAuthService(db, env.users, env.tokens)
	env.bookings = NewBookingService(env.auth, env.listings, env.users, env.ledger, env.events, env.notifier)
	return env
}

func (e *testEnv) register(t *testing.T, username string) models.User {
	t.Helper()
	user, err := e.users.Register(context.Background(), RegisterInput{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "password-" + username,
		FirstName: username,
		LastName:  "Tester",
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := e.auth.IssueToken(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) listing(t *testing.T, owner models.User) models.Listing {
	t.Helper()
	l, err := e.listings.CreateListing(context.Background(), owner.ID, ListingInput{
		Name:        "Backyard Oasis",
		Description: "Shady lawn with a grill",
		Location:    "Oakland",
		Size:        "large",
		Price:       40,
		HasBarbecue: true,
	}, nil)
	require.NoError(t, err)
	return l
}

type memoryFileStore struct {
	mu    sync.Mutex
	files [][]byte
}

func (m *memoryFileStore) Store(_ context.Context, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, data)
	return "https://files.example/photo.jpg", nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	published []models.Availability
}

func (n *recordingNotifier) PublishAvailability(_ string, a models.Availability) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, a)
}

func (n *recordingNotifier) last() (models.Availability, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.published) == 0 {
		return models.Availability{}, 0
	}
	return n.published[len(n.published)-1], len(n.published)
}
