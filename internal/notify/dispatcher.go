package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"impulse-backend/internal/middleware"
	"impulse-backend/internal/models"
)

// Message template names registered with the WhatsApp business account.
const (
	templateOrderConfirm = "impulse_order_confirm_v1"
	templateOnTheWay     = "impulse_on_the_way_v1"
)

// Sender delivers one template message and reports success.
type Sender interface {
	SendTemplate(ctx context.Context, phone, templateName string, variables []string) bool
}

// Ledger commits "notification sent" facts.
type Ledger interface {
	LedgerMark(ctx context.Context, orderID primitive.ObjectID, eventType models.EventType) error
}

// Job is one queued notification attempt. It carries a snapshot of the order
// fields the message needs, so the worker never re-reads the order.
type Job struct {
	ID            string
	Kind          models.EventType
	OrderID       primitive.ObjectID
	OrderNumber   string
	Phone         string
	Total         string
	CustomerToken string
}

// Dispatcher decouples notification delivery from the request that triggered
// it. Requests enqueue; a background worker owns the send, the ledger
// bookkeeping, and the logging. Cancelling the originating request does not
// cancel a queued job.
type Dispatcher struct {
	sender  Sender
	ledger  Ledger
	baseURL string
	jobs    chan Job
}

func NewDispatcher(sender Sender, ledger Ledger, baseURL string) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		ledger:  ledger,
		baseURL: baseURL,
		jobs:    make(chan Job, 64),
	}
}

// Run consumes the queue until Close is called. Start it from main with
// `go dispatcher.Run()`.
func (d *Dispatcher) Run() {
	for job := range d.jobs {
		d.process(job)
	}
}

func (d *Dispatcher) Close() {
	close(d.jobs)
}

// EnqueueConfirmation queues the order-confirmation message. The worker marks
// CONFIRM_SENT only after a successful send.
func (d *Dispatcher) EnqueueConfirmation(order *models.Order) {
	d.enqueue(Job{
		ID:            uuid.NewString(),
		Kind:          models.EventConfirmSent,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Phone:         order.CustomerPhone,
		Total:         order.Total,
		CustomerToken: order.CustomerToken,
	})
}

// EnqueueOnTheWay queues the on-the-way message. ON_THE_WAY_SENT is marked by
// location ingest before this call, so the send outcome does not gate the
// ledger.
func (d *Dispatcher) EnqueueOnTheWay(order *models.Order) {
	d.enqueue(Job{
		ID:            uuid.NewString(),
		Kind:          models.EventOnTheWaySent,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Phone:         order.CustomerPhone,
		CustomerToken: order.CustomerToken,
	})
}

func (d *Dispatcher) enqueue(job Job) {
	select {
	case d.jobs <- job:
	default:
		log.Printf("[NOTIFY] [WARN] queue full, dropping job %s kind=%s order=%s", job.ID, job.Kind, job.OrderNumber)
	}
}

func (d *Dispatcher) process(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	trackingURL := fmt.Sprintf("%s/t/%s?token=%s", d.baseURL, job.OrderNumber, job.CustomerToken)

	switch job.Kind {
	case models.EventConfirmSent:
		variables := []string{job.OrderNumber, "$" + job.Total, trackingURL}
		sent := d.sender.SendTemplate(ctx, job.Phone, templateOrderConfirm, variables)
		middleware.RecordNotificationAttempt("confirmation", sent)
		if !sent {
			log.Printf("[NOTIFY] [ERROR] job %s: confirmation send failed for order %s", job.ID, job.OrderNumber)
			return
		}
		if err := d.ledger.LedgerMark(ctx, job.OrderID, models.EventConfirmSent); err != nil {
			log.Printf("[NOTIFY] [ERROR] job %s: marking CONFIRM_SENT for order %s: %v", job.ID, job.OrderNumber, err)
			return
		}
		log.Printf("[NOTIFY] [INFO] job %s: confirmation sent for order %s", job.ID, job.OrderNumber)
	case models.EventOnTheWaySent:
		variables := []string{job.OrderNumber, trackingURL}
		sent := d.sender.SendTemplate(ctx, job.Phone, templateOnTheWay, variables)
		middleware.RecordNotificationAttempt("on_the_way", sent)
		if !sent {
			log.Printf("[NOTIFY] [ERROR] job %s: on-the-way send failed for order %s", job.ID, job.OrderNumber)
			return
		}
		log.Printf("[NOTIFY] [INFO] job %s: on-the-way sent for order %s", job.ID, job.OrderNumber)
	default:
		log.Printf("[NOTIFY] [ERROR] job %s: unknown kind %s", job.ID, job.Kind)
	}
}
