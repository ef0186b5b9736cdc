package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
)

// SentMessage is one message captured by the in-memory transport.
type SentMessage struct {
	To   string
	Body string
	Menu *models.Menu
}

// InMemoryService is a transport stub for tests and local development. Sent
// messages are recorded as-is; inbound messages are fed by the test.
type InMemoryService struct {
	mu        sync.Mutex
	sent      []SentMessage
	receipts  chan models.Receipt
	responses chan models.Response
}

// NewInMemoryService creates an empty in-memory transport.
func NewInMemoryService() *InMemoryService {
	return &InMemoryService{
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Response, DefaultChannelBufferSize),
	}
}

// ValidateAndCanonicalizeRecipient accepts any non-empty identifier.
func (s *InMemoryService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", errors.New("recipient cannot be empty")
	}
	return recipient, nil
}

func (s *InMemoryService) SendMessage(ctx context.Context, to string, body string, menu *models.Menu) error {
	s.mu.Lock()
	s.sent = append(s.sent, SentMessage{To: to, Body: body, Menu: menu})
	s.mu.Unlock()
	select {
	case s.receipts <- models.Receipt{To: to, Status: models.MessageStatusSent, Time: time.Now().Unix()}:
	default:
	}
	return nil
}

func (s *InMemoryService) Start(ctx context.Context) error { return nil }

func (s *InMemoryService) Stop() error {
	close(s.receipts)
	close(s.responses)
	return nil
}

func (s *InMemoryService) Receipts() <-chan models.Receipt {
	return s.receipts
}

func (s *InMemoryService) Responses() <-chan models.Response {
	return s.responses
}

// FeedResponse injects an inbound message, as a transport would.
func (s *InMemoryService) FeedResponse(resp models.Response) {
	s.responses <- resp
}

// Sent returns a copy of the captured outbound messages.
func (s *InMemoryService) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.sent))
	copy(out, s.sent)
	return out
}
