// Package dispatch escalates emergencies and alerts to people and boats:
// emergency contacts by SMS and email, the fixed authority set by SMS, and
// other boats through their inbox and live event stream.
//
// Every delivery attempt is recorded in the audit log. A failing attempt never
// aborts the others.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/uyirkavalan/uyirkavalan/internal/audit"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/bus"
	"github.com/uyirkavalan/uyirkavalan/internal/fanout"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/inbox"
	"github.com/uyirkavalan/uyirkavalan/internal/notify"
)

// Authority is a fixed dispatch recipient such as the coast guard.
type Authority struct {
	Name   string
	Phone  string
	Notify bool
}

// DefaultAuthorities is the Tamil Nadu authority set. The fisheries
// department is listed for reference but not notified.
var DefaultAuthorities = []Authority{
	{Name: "coast_guard", Phone: "+91-1800-425-3784", Notify: true},
	{Name: "marine_police", Phone: "+91-044-2345-6789", Notify: true},
	{Name: "fisheries_department", Phone: "+91-044-2345-6790", Notify: false},
}

// Incident is the subject being escalated.
type Incident struct {
	Kind audit.SubjectKind
	ID   string

	// Boat raised the incident. Empty for broadcast alerts.
	Boat      string
	OwnerName string
	Location  geo.Point
	Message   string
	CreatedAt time.Time

	// Inbox presentation.
	Title     string
	Body      string
	Severity  string
	VoiceText string
	VoiceURL  string
}

// Delivery is the outcome of one attempt.
type Delivery struct {
	TargetKind audit.TargetKind
	Target     string
	TargetName string
	Channel    audit.Channel
	Provider   string
	Ref        string
	Err        error
}

// OK reports whether the attempt succeeded.
func (d Delivery) OK() bool {
	return d.Err == nil
}

// Config holds the dispatcher's collaborators.
type Config struct {
	SMS       notify.SMSSender
	Email     notify.EmailSender
	Inbox     inbox.Repository
	Audit     audit.Repository
	Directory boat.Directory

	// Bus is optional. When set, boat deliveries are also published live.
	Bus bus.MessageBus

	// Authorities defaults to DefaultAuthorities.
	Authorities []Authority

	// Concurrency bounds parallel deliveries per call (default fanout.DefaultLimit).
	Concurrency int

	Metrics *Metrics
	Logger  zerolog.Logger
}

// Dispatcher fans notifications out over the configured channels.
type Dispatcher struct {
	sms         notify.SMSSender
	email       notify.EmailSender
	inbox       inbox.Repository
	audit       audit.Repository
	directory   boat.Directory
	bus         bus.MessageBus
	authorities []Authority
	group       *fanout.Group
	metrics     *Metrics
	logger      zerolog.Logger
}

// New creates a dispatcher. Missing SMS or email senders fall back to logging.
func New(cfg Config) *Dispatcher {
	authorities := cfg.Authorities
	if authorities == nil {
		authorities = DefaultAuthorities
	}

	var fallback *notify.LogChannel
	if cfg.SMS == nil || cfg.Email == nil {
		fallback = notify.NewLogChannel(cfg.Logger)
	}
	sms := cfg.SMS
	if sms == nil {
		sms = fallback
	}
	email := cfg.Email
	if email == nil {
		email = fallback
	}

	return &Dispatcher{
		sms:         sms,
		email:       email,
		inbox:       cfg.Inbox,
		audit:       cfg.Audit,
		directory:   cfg.Directory,
		bus:         cfg.Bus,
		authorities: authorities,
		group:       fanout.New(cfg.Concurrency),
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("component", "dispatch").Logger(),
	}
}

// attempt pairs a pending delivery with the work that performs it.
type attempt struct {
	delivery Delivery
	run      func(ctx context.Context) (string, error)
}

// NotifyContacts sends the SOS SMS to every contact with a phone number and
// the SOS email to every contact with an email address.
func (d *Dispatcher) NotifyContacts(ctx context.Context, inc Incident, contacts []boat.EmergencyContact) []Delivery {
	details := sosDetails(inc)
	smsBody := notify.SOSMessage(details)

	var attempts []attempt
	for _, c := range contacts {
		if c.Phone != "" {
			to := c.Phone
			attempts = append(attempts, attempt{
				delivery: Delivery{
					TargetKind: audit.TargetEmergencyContact,
					Target:     to,
					TargetName: c.Name,
					Channel:    audit.ChannelSMS,
					Provider:   d.sms.Name(),
				},
				run: func(ctx context.Context) (string, error) {
					return d.sms.SendSMS(ctx, to, smsBody)
				},
			})
		}

		if c.Email != "" {
			to := c.Email
			attempts = append(attempts, attempt{
				delivery: Delivery{
					TargetKind: audit.TargetEmergencyContact,
					Target:     to,
					TargetName: c.Name,
					Channel:    audit.ChannelEmail,
					Provider:   d.email.Name(),
				},
				run: func(ctx context.Context) (string, error) {
					email, err := notify.SOSEmail(details)
					if err != nil {
						return "", err
					}
					return d.email.SendEmail(ctx, to, email)
				},
			})
		}
	}

	if len(attempts) == 0 {
		d.logger.Info().Str("subject_id", inc.ID).Str("boat_id", inc.Boat).Msg("no emergency contacts to notify")
	}

	return d.execute(ctx, inc, attempts)
}

// NotifyAuthorities sends the authority SMS to each authority marked for notification.
func (d *Dispatcher) NotifyAuthorities(ctx context.Context, inc Incident) []Delivery {
	body := notify.AuthorityMessage(sosDetails(inc))

	var attempts []attempt
	for _, a := range d.authorities {
		if !a.Notify {
			continue
		}
		to := a.Phone
		attempts = append(attempts, attempt{
			delivery: Delivery{
				TargetKind: audit.TargetAuthority,
				Target:     to,
				TargetName: a.Name,
				Channel:    audit.ChannelSMS,
				Provider:   d.sms.Name(),
			},
			run: func(ctx context.Context) (string, error) {
				return d.sms.SendSMS(ctx, to, body)
			},
		})
	}

	return d.execute(ctx, inc, attempts)
}

// NotifyBoats writes an inbox entry for each boat and publishes it live.
func (d *Dispatcher) NotifyBoats(ctx context.Context, inc Incident, boats []string) []Delivery {
	kind := inbox.KindAlert
	eventKind := bus.KindAlert
	if inc.Kind == audit.SubjectSOS {
		kind = inbox.KindSOSNearby
		eventKind = bus.KindSOSNearby
	}

	attempts := make([]attempt, 0, len(boats))
	for _, boatID := range boats {
		target := boatID
		attempts = append(attempts, attempt{
			delivery: Delivery{
				TargetKind: audit.TargetNearbyBoat,
				Target:     target,
				Channel:    audit.ChannelInbox,
				Provider:   "inbox",
			},
			run: func(ctx context.Context) (string, error) {
				entry := &inbox.Entry{
					ID:         inbox.NewEntryID(),
					Boat:       target,
					Kind:       kind,
					SourceID:   inc.ID,
					Title:      inc.Title,
					Body:       inc.Body,
					Severity:   inc.Severity,
					VoiceText:  inc.VoiceText,
					VoiceURL:   inc.VoiceURL,
					Active:     true,
					ReceivedAt: time.Now(),
				}
				if inc.Kind == audit.SubjectSOS {
					loc := inc.Location
					entry.Location = &loc
				}

				if err := d.inbox.Add(ctx, entry); err != nil {
					return "", err
				}
				bus.PublishToBoat(d.bus, target, eventKind, entry)
				return entry.ID, nil
			},
		})
	}

	return d.execute(ctx, inc, attempts)
}

// NearbyBoats returns the boats that should hear about an incident at the given point.
// The radius is currently ignored: every active fisherman except exclude is returned.
func (d *Dispatcher) NearbyBoats(ctx context.Context, _ geo.Point, _ float64, exclude string) ([]string, error) {
	boats, err := d.directory.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(boats))
	for _, b := range boats {
		if !b.IsFisherman() || b.ID == exclude {
			continue
		}
		ids = append(ids, b.ID)
	}
	return ids, nil
}

// execute runs the attempts concurrently and records each outcome.
func (d *Dispatcher) execute(ctx context.Context, inc Incident, attempts []attempt) []Delivery {
	if len(attempts) == 0 {
		return nil
	}

	tasks := make([]fanout.Task, len(attempts))
	for i, a := range attempts {
		tasks[i] = fanout.Task{Name: a.delivery.Target, Run: a.run}
	}

	results := d.group.Run(ctx, tasks)

	deliveries := make([]Delivery, len(attempts))
	for i, res := range results {
		del := attempts[i].delivery
		del.Ref = res.Ref
		del.Err = res.Err
		deliveries[i] = del

		d.record(ctx, inc, del, res.Duration)
	}

	return deliveries
}

// record writes the audit entry and metrics for one delivery.
func (d *Dispatcher) record(ctx context.Context, inc Incident, del Delivery, duration time.Duration) {
	status := audit.StatusSent
	errMsg := ""
	if del.Err != nil {
		status = audit.StatusFailed
		errMsg = del.Err.Error()

		d.logger.Warn().
			Err(del.Err).
			Str("subject_id", inc.ID).
			Str("target_kind", string(del.TargetKind)).
			Str("target", del.Target).
			Str("channel", string(del.Channel)).
			Msg("notification attempt failed")
	}

	d.metrics.RecordAttempt(del.TargetKind, del.Channel, status, duration)

	if d.audit == nil {
		return
	}

	entry := &audit.Attempt{
		ID:          audit.NewAttemptID(),
		SubjectID:   inc.ID,
		SubjectKind: inc.Kind,
		Event:       audit.EventNotification,
		TargetKind:  del.TargetKind,
		Target:      del.Target,
		TargetName:  del.TargetName,
		Channel:     del.Channel,
		Provider:    del.Provider,
		Status:      status,
		ProviderRef: del.Ref,
		Error:       errMsg,
		Timestamp:   time.Now(),
	}
	if err := d.audit.Append(context.WithoutCancel(ctx), entry); err != nil {
		d.logger.Error().Err(err).Str("subject_id", inc.ID).Msg("failed to record notification attempt")
	}
}

func sosDetails(inc Incident) notify.SOSDetails {
	return notify.SOSDetails{
		OwnerName: inc.OwnerName,
		Boat:      inc.Boat,
		Location:  inc.Location,
		Message:   inc.Message,
		CreatedAt: inc.CreatedAt,
	}
}
