package notification

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/Msocha19/SSBD-TUL-2023/internal/config"
	"github.com/Msocha19/SSBD-TUL-2023/internal/metrics"
	"github.com/Msocha19/SSBD-TUL-2023/internal/repository"
)

type message struct {
	kind Kind
	to   string
	lang repository.Language
	data templateData
}

// Dispatcher queues messages and delivers them on a background worker. A full
// queue drops the message with a warning rather than blocking the caller.
type Dispatcher struct {
	sender  Sender
	log     *slog.Logger
	baseURL string

	queue chan message
	done  chan struct{}
	once  sync.Once
}

// NewDispatcher creates a dispatcher and starts its delivery worker.
func NewDispatcher(sender Sender, cfg *config.Config, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		sender:  sender,
		log:     log,
		baseURL: cfg.Frontend.BaseURL,
		queue:   make(chan message, cfg.Mail.QueueSize),
		done:    make(chan struct{}),
	}
	go d.worker()
	return d
}

// Close stops accepting messages and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.queue)
		<-d.done
	})
}

func (d *Dispatcher) worker() {
	defer close(d.done)
	for msg := range d.queue {
		subject, body, err := render(msg.kind, msg.lang, msg.data)
		if err != nil {
			d.log.Error("failed to render notification", "kind", msg.kind, "error", err)
			metrics.NotificationsSent.WithLabelValues(string(msg.kind), "error").Inc()
			continue
		}
		if err := d.sender.Send(msg.to, subject, body); err != nil {
			d.log.Error("failed to deliver notification", "kind", msg.kind, "error", err)
			metrics.NotificationsSent.WithLabelValues(string(msg.kind), "error").Inc()
			continue
		}
		metrics.NotificationsSent.WithLabelValues(string(msg.kind), "success").Inc()
	}
}

func (d *Dispatcher) enqueue(msg message) {
	select {
	case d.queue <- msg:
	default:
		d.log.Warn("notification queue full, dropping message", "kind", msg.kind)
		metrics.NotificationsSent.WithLabelValues(string(msg.kind), "dropped").Inc()
	}
}

func (d *Dispatcher) link(path string, token uuid.UUID) string {
	return d.baseURL + path + "?token=" + token.String()
}

// RegistrationConfirmation asks a fresh registrant to confirm the account.
func (d *Dispatcher) RegistrationConfirmation(account *repository.Account, token uuid.UUID) {
	d.enqueue(message{
		kind: KindConfirmRegistration,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName(), Link: d.link("/confirm-registration", token)},
	})
}

// RegistrationReminder nudges an unconfirmed registrant before removal.
func (d *Dispatcher) RegistrationReminder(account *repository.Account, token uuid.UUID) {
	d.enqueue(message{
		kind: KindRegistrationReminder,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName(), Link: d.link("/confirm-registration", token)},
	})
}

// PasswordReset carries a self-service reset link.
func (d *Dispatcher) PasswordReset(account *repository.Account, token uuid.UUID) {
	d.enqueue(message{
		kind: KindPasswordReset,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName(), Link: d.link("/reset-password", token)},
	})
}

// PasswordOverride informs about an administrative password change.
func (d *Dispatcher) PasswordOverride(account *repository.Account, token uuid.UUID) {
	d.enqueue(message{
		kind: KindPasswordOverride,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName(), Link: d.link("/override-password", token)},
	})
}

// EmailChange sends the confirmation link. The new address is supplied only
// at confirmation time, so the link goes to the address on record.
func (d *Dispatcher) EmailChange(account *repository.Account, token uuid.UUID) {
	d.enqueue(message{
		kind: KindEmailChange,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName(), Link: d.link("/confirm-email", token)},
	})
}

// AccountBlocked informs the owner that the account was deactivated.
func (d *Dispatcher) AccountBlocked(account *repository.Account) {
	d.enqueue(message{
		kind: KindAccountBlocked,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName()},
	})
}

// ActiveStatusChanged informs about an administrative block or unblock.
func (d *Dispatcher) ActiveStatusChanged(account *repository.Account, active bool) {
	kind := KindAccountBlocked
	if active {
		kind = KindAccountUnblocked
	}
	d.enqueue(message{
		kind: kind,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName()},
	})
}

// RegistrationExpired informs that an unconfirmed account was removed.
func (d *Dispatcher) RegistrationExpired(account *repository.Account) {
	d.enqueue(message{
		kind: KindRegistrationExpired,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName()},
	})
}

// AccessGranted informs about a newly granted access level.
func (d *Dispatcher) AccessGranted(account *repository.Account, level repository.AccessType) {
	d.enqueue(message{
		kind: KindAccessGranted,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName(), Level: string(level)},
	})
}

// AccessRevoked informs about a revoked access level.
func (d *Dispatcher) AccessRevoked(account *repository.Account, level repository.AccessType) {
	d.enqueue(message{
		kind: KindAccessRevoked,
		to:   account.Email,
		lang: account.Language,
		data: templateData{Name: account.FullName(), Level: string(level)},
	})
}
