package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"peritagem/internal/model"
)

// EventType names a workflow event
type EventType string

const (
	EventNewPeritagem     EventType = "new_peritagem"
	EventBuyerFinished    EventType = "buyer_finished"
	EventProcessConcluded EventType = "process_concluded"
	EventUpdated          EventType = "peritagem_updated"
	EventDeleted          EventType = "peritagem_deleted"
)

// Emails reports whether the event triggers an e-mail
func (t EventType) Emails() bool {
	switch t {
	case EventNewPeritagem, EventBuyerFinished, EventProcessConcluded:
		return true
	}
	return false
}

// Event is published after a peritagem mutation succeeds
type Event struct {
	Type      EventType
	Peritagem model.Peritagem
}

// Notifier receives workflow events. Implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// MultiNotifier fans an event out to every notifier
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}

// FunctionInvoker calls a named serverless function
type FunctionInvoker interface {
	InvokeFunction(ctx context.Context, name string, body any) error
}

type emailPayload struct {
	Type EventType `json:"type"`
	Data emailData `json:"data"`
}

type emailData struct {
	ID          string `json:"id"`
	Cliente     string `json:"cliente"`
	Equipamento string `json:"equipamento"`
	Responsavel string `json:"responsavel"`
}

// EmailNotifier triggers the send-email function, fire and forget
type EmailNotifier struct {
	invoker FunctionInvoker
	timeout time.Duration
	log     *zap.Logger
}

func NewEmailNotifier(invoker FunctionInvoker, timeout time.Duration, log *zap.Logger) *EmailNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailNotifier{invoker: invoker, timeout: timeout, log: log}
}

func (n *EmailNotifier) Notify(ctx context.Context, ev Event) {
	if !ev.Type.Emails() {
		return
	}
	responsavel := ev.Peritagem.ResponsavelTecnico
	if responsavel == "" {
		responsavel = "N/A"
	}
	payload := emailPayload{
		Type: ev.Type,
		Data: emailData{
			ID:          ev.Peritagem.ID,
			Cliente:     ev.Peritagem.Cliente,
			Equipamento: ev.Peritagem.Equipamento,
			Responsavel: responsavel,
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		if err := n.invoker.InvokeFunction(ctx, "send-email", payload); err != nil {
			n.log.Warn("email trigger failed",
				zap.String("type", string(ev.Type)),
				zap.String("peritagem_id", ev.Peritagem.ID),
				zap.Error(err),
			)
		}
	}()
}

// PendingCounter computes the per-role work queues
type PendingCounter interface {
	PendingCounts(ctx context.Context) (*model.PendingCounts, error)
}

// Broadcaster pushes a message to connected clients
type Broadcaster interface {
	Broadcast(message []byte)
}

type pendingMessage struct {
	Type   string               `json:"type"`
	Event  EventType            `json:"event"`
	ID     string               `json:"id,omitempty"`
	Counts *model.PendingCounts `json:"counts"`
}

// HubNotifier pushes fresh pending counts to websocket clients
type HubNotifier struct {
	counter PendingCounter
	hub     Broadcaster
	timeout time.Duration
	log     *zap.Logger
}

func NewHubNotifier(counter PendingCounter, hub Broadcaster, log *zap.Logger) *HubNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &HubNotifier{counter: counter, hub: hub, timeout: 10 * time.Second, log: log}
}

func (n *HubNotifier) Notify(ctx context.Context, ev Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		defer cancel()
		counts, err := n.counter.PendingCounts(ctx)
		if err != nil {
			n.log.Warn("pending counts failed", zap.Error(err))
			return
		}
		msg, err := json.Marshal(pendingMessage{Type: "pending_counts", Event: ev.Type, ID: ev.Peritagem.ID, Counts: counts})
		if err != nil {
			n.log.Error("encode pending counts", zap.Error(err))
			return
		}
		n.hub.Broadcast(msg)
	}()
}
