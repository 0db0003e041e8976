package commands

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mauv0809/rankwatch/internal/errs"
	"github.com/mauv0809/rankwatch/internal/schema"
)

// Slack escapes mentions as <@U123> or <@U123|name>.
var mentionPattern = regexp.MustCompile(`^<@([UW][A-Z0-9]+)(?:\|[^>]*)?>$`)

// ParseMention returns the member id of an escaped mention.
func ParseMention(arg string) (string, bool) {
	m := mentionPattern.FindStringSubmatch(arg)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// keyFromArgs maps positional arguments onto the key fields in declaration order.
func keyFromArgs(desc *schema.Descriptor, args []string) (schema.Values, error) {
	raw := make(schema.Values, len(args))
	for i, f := range desc.KeyFields() {
		raw[f.Name] = args[i]
	}
	return requireKey(desc, raw)
}

// requireKey checks that key sets every key field and nothing else, then
// normalizes it.
func requireKey(desc *schema.Descriptor, key schema.Values) (schema.Values, error) {
	fields := desc.KeyFields()
	complete := len(key) == len(fields)
	for _, f := range fields {
		if v, ok := key[f.Name]; !ok || v == nil {
			complete = false
		}
	}
	if !complete {
		return nil, errs.Newf(errs.ErrUserInput, "expected %s", keyUsage(desc))
	}
	norm, err := desc.Normalize(key)
	if err != nil {
		return nil, errs.Wrapf(err, errs.ErrUserInput, "invalid %s", keyUsage(desc))
	}
	return norm, nil
}

func keyUsage(desc *schema.Descriptor) string {
	names := make([]string, 0, len(desc.KeyFields()))
	for _, f := range desc.KeyFields() {
		names = append(names, "`"+f.Name+"`")
	}
	return strings.Join(names, ", ")
}

func keyText(desc *schema.Descriptor, values schema.Values) string {
	parts := make([]string, 0, len(desc.KeyFields()))
	for _, f := range desc.KeyFields() {
		parts = append(parts, fmt.Sprint(values[f.Name]))
	}
	return strings.Join(parts, "/")
}

// displayField is the key field a player is usually called by, the last one.
func displayField(desc *schema.Descriptor) string {
	keys := desc.KeyFields()
	return keys[len(keys)-1].Name
}

// rankField orders leaderboards: the first tracked field.
func rankField(desc *schema.Descriptor) string {
	if tracked := desc.TrackedFields(); len(tracked) > 0 {
		return tracked[0].Name
	}
	return schema.IDField
}

// label reads e.g. "eu/draenor/Thrall (rating 1532.4)".
func label(desc *schema.Descriptor, values schema.Values) string {
	text := keyText(desc, values)
	rank := rankField(desc)
	f, ok := desc.Field(rank)
	if !ok {
		return text
	}
	switch f.Type {
	case schema.Real:
		return fmt.Sprintf("%s (%s %.1f)", text, rank, values.Float(rank))
	case schema.Integer:
		return fmt.Sprintf("%s (%s %d)", text, rank, values.Int(rank))
	default:
		return fmt.Sprintf("%s (%s %s)", text, rank, values.Text(rank))
	}
}
