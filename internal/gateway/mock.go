package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/perennialAutodidact/firebase-stripe-tunnel/internal/domain"
)

// MockGateway is an in-process stand-in for the provider, used in local
// runs and as a test double for the layers above. State lives in a map
// guarded by an RWMutex; ids are pi_1, pi_2, ... in creation order.
type MockGateway struct {
	mu      sync.RWMutex
	intents map[string]domain.IntentState
	seq     int

	// FailCreate / FailCancel force the next matching call to fail with
	// the given error. They reset after firing.
	FailCreate error
	FailCancel error

	CreateCalls int
	CancelCalls int
}

func NewMockGateway() *MockGateway {
	return &MockGateway{intents: make(map[string]domain.IntentState)}
}

func (mg *MockGateway) Create(ctx context.Context, amount int64, currency string) (CreateResult, error) {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	mg.CreateCalls++
	if err := mg.FailCreate; err != nil {
		mg.FailCreate = nil
		return CreateResult{}, err
	}

	mg.seq++
	id := fmt.Sprintf("pi_%d", mg.seq)
	mg.intents[id] = domain.IntentCreated
	return CreateResult{ID: id, ClientSecret: fmt.Sprintf("secret_%d", mg.seq)}, nil
}

func (mg *MockGateway) Cancel(ctx context.Context, id string) error {
	mg.mu.Lock()
	defer mg.mu.Unlock()

	mg.CancelCalls++
	if err := mg.FailCancel; err != nil {
		mg.FailCancel = nil
		return err
	}

	state, exists := mg.intents[id]
	if !exists {
		return ErrIntentNotFound
	}
	if state.Terminal() {
		return ErrGatewayRejected
	}
	mg.intents[id] = domain.IntentCanceled
	return nil
}

func (mg *MockGateway) Status(ctx context.Context, id string) (domain.IntentState, error) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()

	state, exists := mg.intents[id]
	if !exists {
		return domain.IntentUnknown, ErrIntentNotFound
	}
	return state, nil
}

// Settle marks an intent settled provider-side, as if the buyer confirmed
// payment with their client secret.
func (mg *MockGateway) Settle(id string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	mg.intents[id] = domain.IntentSucceeded
}

// Forget drops the provider-side record so Status fails for id.
func (mg *MockGateway) Forget(id string) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	delete(mg.intents, id)
}

var _ Gateway = (*MockGateway)(nil)
