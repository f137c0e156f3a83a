package datastore

import (
	"context"
	"fmt"

	"parceldesk/internal/domain/account"
	"parceldesk/internal/domain/broadcast"
	"parceldesk/internal/domain/ticket"
	vo "parceldesk/internal/domain/ticket/valueobjects"
	"parceldesk/internal/shared/biztime"
	"parceldesk/internal/shared/errors"
	"parceldesk/internal/shared/logger"
)

// CredentialHasher hashes seed account passwords.
type CredentialHasher interface {
	Hash(plain string) (string, error)
}

// SeedDemoData loads a small, realistic data set into any Store: two staff
// accounts (password "admin123"), a handful of tickets in assorted states
// and today's broadcast traffic. Safe to call once per empty store; it
// aborts when the admin account already exists.
func SeedDemoData(ctx context.Context, store Store, hasher CredentialHasher, log logger.Interface) error {
	existing, err := store.GetAccountByEmail(ctx, "admin@parceldesk.local")
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.NewConstraintError("demo data already seeded")
	}

	hash, err := hasher.Hash("admin123")
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	admin, err := account.NewAccount("Demo Admin", "admin@parceldesk.local", hash, account.RoleAdmin)
	if err != nil {
		return err
	}
	agent, err := account.NewAccount("Demo Agent", "agent@parceldesk.local", hash, account.RoleAgent)
	if err != nil {
		return err
	}
	if err := store.CreateAccount(ctx, admin); err != nil {
		return err
	}
	if err := store.CreateAccount(ctx, agent); err != nil {
		return err
	}

	agentID := agent.ID()
	now := biztime.NowUTC()
	seedTickets := []struct {
		subject     string
		description string
		priority    vo.Priority
		trackingRef string
		contact     string
		assignee    *uint
		closed      bool
	}{
		{"Package not delivered", "Customer says the tracking page shows delivered but nothing arrived.", vo.PriorityHigh, "PK900112233", "+15550001111", &agentID, false},
		{"Damaged parcel on arrival", "Box crushed, contents intact. Customer wants a claim form.", vo.PriorityMedium, "PK900112234", "+15550002222", &agentID, false},
		{"Wrong delivery address", "Recipient moved, needs redirect to the new address.", vo.PriorityUrgent, "PK900112235", "+15550003333", nil, false},
		{"Duplicate SMS notifications", "Customer received the same delivery alert four times.", vo.PriorityLow, "PK900112236", "+15550004444", nil, false},
		{"Pickup point closed", "Parcel sent to a pickup point that shut down last month.", vo.PriorityMedium, "PK900112237", "+15550005555", &agentID, true},
	}

	for i, st := range seedTickets {
		t, err := ticket.NewTicket(
			ticket.FormatNumber(now, i+1),
			st.subject, st.description, st.priority, st.trackingRef, st.contact, st.assignee,
		)
		if err != nil {
			return err
		}
		if err := store.CreateTicket(ctx, t); err != nil {
			return err
		}
		if st.closed {
			if _, err := store.CloseTicket(ctx, t.ID(), "resolved by rerouting to nearest pickup point"); err != nil {
				return err
			}
		}
	}

	seedBroadcasts := []struct {
		channel     broadcast.Channel
		recipient   string
		trackingRef string
		message     string
		failed      bool
		detail      string
	}{
		{broadcast.ChannelSMS, "+15550001111", "PK900112233", "Your parcel PK900112233 is out for delivery.", false, ""},
		{broadcast.ChannelWhatsApp, "+15550002222", "PK900112234", "Your parcel PK900112234 has arrived at the depot.", false, ""},
		{broadcast.ChannelSMS, "+15550003333", "PK900112235", "Delivery attempt failed, we will retry tomorrow.", true, "carrier rejected: invalid number"},
		{broadcast.ChannelWhatsApp, "+15550004444", "PK900112236", "Your parcel PK900112236 is ready for pickup.", false, ""},
		{broadcast.ChannelSMS, "+15550005555", "PK900112237", "Your parcel PK900112237 was delivered.", true, "provider timeout"},
	}

	for _, sb := range seedBroadcasts {
		l, err := broadcast.NewLog(sb.channel, sb.recipient, sb.trackingRef, sb.message)
		if err != nil {
			return err
		}
		if sb.failed {
			l.MarkFailed(sb.detail, map[string]any{"provider": "demo", "code": "30003"})
		} else {
			l.MarkSuccess(map[string]any{"provider": "demo", "sid": "SM" + sb.trackingRef})
		}
		if err := store.CreateBroadcast(ctx, l); err != nil {
			return err
		}
	}

	log.Infow("seeded demo data",
		"backend", string(store.Kind()),
		"accounts", 2,
		"tickets", len(seedTickets),
		"broadcasts", len(seedBroadcasts))
	return nil
}
