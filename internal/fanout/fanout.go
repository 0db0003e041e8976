package fanout

import (
	"github.com/mauv0809/rankwatch/internal/notifier"
	"github.com/mauv0809/rankwatch/internal/schema"
	"github.com/mauv0809/rankwatch/internal/tracker"
)

// Decision is the outcome of comparing a stored player with fresh state.
type Decision struct {
	Notable bool
	// Changed lists the tracked fields that differ, in descriptor order.
	Changed []string
	// Values holds the mutable fields to persist. Empty unless Notable.
	Values schema.Values
}

// Delivery is one rendered message bound for one group's channel.
type Delivery struct {
	GroupID   string
	ChannelID string
	Message   notifier.Message
}

// Decide reports whether fresh differs from old in any tracked field. When
// it does, every mutable field present in fresh is carried for the update.
func Decide(desc *schema.Descriptor, old, fresh schema.Values) Decision {
	changed := desc.Changed(old, fresh)
	if len(changed) == 0 {
		return Decision{}
	}
	values := make(schema.Values)
	for _, f := range desc.MutableFields() {
		if v, ok := fresh[f.Name]; ok {
			values[f.Name] = v
		}
	}
	return Decision{Notable: true, Changed: changed, Values: values}
}

// Plan renders one delivery per distinct (group, channel) pair.
func Plan(channels []tracker.SubscriberChannel, render func(tracker.SubscriberChannel) notifier.Message) []Delivery {
	type target struct{ group, channel string }
	seen := make(map[target]bool, len(channels))
	deliveries := make([]Delivery, 0, len(channels))
	for _, ch := range channels {
		t := target{ch.GroupID, ch.ChannelID}
		if seen[t] {
			continue
		}
		seen[t] = true
		deliveries = append(deliveries, Delivery{
			GroupID:   ch.GroupID,
			ChannelID: ch.ChannelID,
			Message:   render(ch),
		})
	}
	return deliveries
}
