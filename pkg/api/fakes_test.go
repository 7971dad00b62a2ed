package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cashtrackr/api/pkg/auth"
	"github.com/cashtrackr/api/pkg/mail"
	"github.com/cashtrackr/api/pkg/observability"
	"github.com/cashtrackr/api/pkg/storage"
)

// In-memory stores backing handler tests. They implement the same contracts
// as the postgres stores, including ErrNotFound and the empty (never nil)
// expenses slice.

type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*storage.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[int64]*storage.User)}
}

func (s *memUserStore) Create(_ context.Context, user *storage.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copy := *user
	s.users[user.ID] = &copy
	return nil
}

func (s *memUserStore) GetByID(_ context.Context, id int64) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *user
	return &copy, nil
}

func (s *memUserStore) GetByEmail(_ context.Context, email string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copy := *user
			return &copy, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memUserStore) GetByToken(_ context.Context, token string) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Token != nil && *user.Token == token {
			copy := *user
			return &copy, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memUserStore) Confirm(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	user.Confirmed = true
	user.Token = nil
	return nil
}

func (s *memUserStore) UpdateToken(_ context.Context, id int64, token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	user.Token = token
	return nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	user.Password = passwordHash
	return nil
}

func (s *memUserStore) ResetPassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	user.Password = passwordHash
	user.Token = nil
	return nil
}

type memExpenseStore struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]*storage.Expense
}

func newMemExpenseStore() *memExpenseStore {
	return &memExpenseStore{expenses: make(map[int64]*storage.Expense)}
}

func (s *memExpenseStore) Create(_ context.Context, expense *storage.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	expense.ID = s.nextID
	expense.CreatedAt = time.Now()
	expense.UpdatedAt = expense.CreatedAt
	copy := *expense
	s.expenses[expense.ID] = &copy
	return nil
}

func (s *memExpenseStore) GetByID(_ context.Context, id int64) (*storage.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expense, ok := s.expenses[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *expense
	return &copy, nil
}

func (s *memExpenseStore) Update(_ context.Context, expense *storage.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.expenses[expense.ID]
	if !ok {
		return storage.ErrNotFound
	}
	stored.Name = expense.Name
	stored.Amount = expense.Amount
	return nil
}

func (s *memExpenseStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *memExpenseStore) byBudget(budgetID int64) []*storage.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*storage.Expense{}
	for _, expense := range s.expenses {
		if expense.BudgetID == budgetID {
			copy := *expense
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result
}

type memBudgetStore struct {
	mu       sync.Mutex
	nextID   int64
	budgets  map[int64]*storage.Budget
	expenses *memExpenseStore
}

func newMemBudgetStore(expenses *memExpenseStore) *memBudgetStore {
	return &memBudgetStore{budgets: make(map[int64]*storage.Budget), expenses: expenses}
}

func (s *memBudgetStore) Create(_ context.Context, budget *storage.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	budget.ID = s.nextID
	budget.CreatedAt = time.Now()
	budget.UpdatedAt = budget.CreatedAt
	if budget.Expenses == nil {
		budget.Expenses = []*storage.Expense{}
	}
	copy := *budget
	s.budgets[budget.ID] = &copy
	return nil
}

func (s *memBudgetStore) ListByUser(_ context.Context, userID int64) ([]*storage.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []*storage.Budget{}
	for _, budget := range s.budgets {
		if budget.UserID == userID {
			copy := *budget
			copy.Expenses = []*storage.Expense{}
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (s *memBudgetStore) GetByID(_ context.Context, id int64) (*storage.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	budget, ok := s.budgets[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *budget
	copy.Expenses = []*storage.Expense{}
	return &copy, nil
}

func (s *memBudgetStore) GetWithExpenses(ctx context.Context, id int64) (*storage.Budget, error) {
	budget, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	budget.Expenses = s.expenses.byBudget(id)
	return budget, nil
}

func (s *memBudgetStore) Update(_ context.Context, budget *storage.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.budgets[budget.ID]
	if !ok {
		return storage.ErrNotFound
	}
	stored.Name = budget.Name
	stored.Amount = budget.Amount
	return nil
}

func (s *memBudgetStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	if _, ok := s.budgets[id]; !ok {
		s.mu.Unlock()
		return storage.ErrNotFound
	}
	delete(s.budgets, id)
	s.mu.Unlock()

	for _, expense := range s.expenses.byBudget(id) {
		s.expenses.Delete(context.Background(), expense.ID)
	}
	return nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Email
}

func (m *recordingMailer) Send(_ context.Context, email mail.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, email)
	return nil
}

func (m *recordingMailer) last(t *testing.T) mail.Email {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

type testServer struct {
	server   *Server
	users    *memUserStore
	budgets  *memBudgetStore
	expenses *memExpenseStore
	jwt      *auth.JWTManager
	mailer   *recordingMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := newMemUserStore()
	expenses := newMemExpenseStore()
	budgets := newMemBudgetStore(expenses)
	jwt := auth.NewJWTManager([]byte("test-secret"), time.Hour)
	mailer := &recordingMailer{}

	server := NewServer(Options{
		Users:    users,
		Budgets:  budgets,
		Expenses: expenses,
		JWT:      jwt,
		Emails:   mail.NewAuthEmail(mailer),
		Logger:   observability.NewLogger(observability.ErrorLevel, io.Discard),
	})
	return &testServer{
		server:   server,
		users:    users,
		budgets:  budgets,
		expenses: expenses,
		jwt:      jwt,
		mailer:   mailer,
	}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

// seedUser inserts a confirmed account and returns it with a session token.
func (ts *testServer) seedUser(t *testing.T, name, email, password string) (*storage.User, string) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	user := &storage.User{Name: name, Email: email, Password: hash, Confirmed: true}
	require.NoError(t, ts.users.Create(context.Background(), user))
	token, err := ts.jwt.Issue(user.ID)
	require.NoError(t, err)
	return user, token
}

func (ts *testServer) seedBudget(t *testing.T, userID int64, name string, amount float64) *storage.Budget {
	t.Helper()
	budget := &storage.Budget{Name: name, Amount: amount, UserID: userID}
	require.NoError(t, ts.budgets.Create(context.Background(), budget))
	return budget
}

func (ts *testServer) seedExpense(t *testing.T, budgetID int64, name string, amount float64) *storage.Expense {
	t.Helper()
	expense := &storage.Expense{Name: name, Amount: amount, BudgetID: budgetID}
	require.NoError(t, ts.expenses.Create(context.Background(), expense))
	return expense
}

func fieldErrorCount(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Errors []struct {
			Msg   string `json:"msg"`
			Param string `json:"param"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return len(body.Errors)
}

var _ http.Handler = (*Server)(nil)
