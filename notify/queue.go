package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

const probeTimeout = 10 * time.Second

// queueAPI is the slice of the queue client the notifier uses, kept small
// so tests can substitute a fake.
type queueAPI interface {
	Probe(ctx context.Context) error
	Enqueue(ctx context.Context, payload string) error
}

type azQueue struct {
	client *azqueue.QueueClient
}

func (q azQueue) Probe(ctx context.Context) error {
	_, err := q.client.GetProperties(ctx, nil)
	return err
}

func (q azQueue) Enqueue(ctx context.Context, payload string) error {
	_, err := q.client.EnqueueMessage(ctx, payload, nil)
	return err
}

type message struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Time  int64  `json:"time"`
}

// QueueNotifier delivers notifications to a storage queue consumed by the
// dashboard's push service. Permission starts undetermined and is resolved
// by a one-shot asynchronous access probe: a reachable queue grants it, a
// rejected probe denies it, and a probe that times out leaves it
// undetermined, the same way a dismissed permission prompt would.
type QueueNotifier struct {
	queue  queueAPI
	logger *log.Logger

	mu        sync.RWMutex
	state     PermissionState
	probeOnce sync.Once
}

// NewQueueNotifier creates a notifier over the given queue client. A nil
// client yields a permanently unavailable notifier.
func NewQueueNotifier(client *azqueue.QueueClient, logger *log.Logger) *QueueNotifier {
	n := &QueueNotifier{logger: logger, state: PermissionUndetermined}
	if client != nil {
		n.queue = azQueue{client: client}
	}
	return n
}

// IsAvailable reports whether a delivery queue is configured.
func (n *QueueNotifier) IsAvailable() bool {
	return n.queue != nil
}

// PermissionState returns the current negotiated state.
func (n *QueueNotifier) PermissionState() PermissionState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// RequestPermission probes queue access once, in the background. Repeat
// calls are no-ops.
func (n *QueueNotifier) RequestPermission() {
	if !n.IsAvailable() {
		return
	}
	n.probeOnce.Do(func() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			defer cancel()
			n.resolvePermission(ctx)
		}()
	})
}

func (n *QueueNotifier) resolvePermission(ctx context.Context) {
	err := n.queue.Probe(ctx)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != PermissionUndetermined {
		return
	}
	switch {
	case err == nil:
		n.state = PermissionGranted
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		// Probe never resolved; leave the state undetermined.
		n.logger.Warnf("notification queue probe timed out: %v", err)
	default:
		n.state = PermissionDenied
		n.logger.Warnf("notification queue access denied: %v", err)
	}
}

// Notify enqueues one notification message.
func (n *QueueNotifier) Notify(title, body string) error {
	if n.queue == nil {
		return errors.New("notifier unavailable")
	}
	payload, err := sonic.MarshalString(message{Title: title, Body: body, Time: time.Now().UnixNano()})
	if err != nil {
		return err
	}
	return n.queue.Enqueue(context.Background(), payload)
}
