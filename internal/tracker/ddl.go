package tracker

import (
	"fmt"
	"strings"

	"github.com/mauv0809/rankwatch/internal/schema"
)

// Aliases start with an underscore, which no descriptor field name can.
const (
	ownerTagAlias = "_owner_tag"
)

// queries holds every statement of one kind, built once from its
// descriptor. Identifiers come only from the validated descriptor and are
// always quoted; values are always bound as parameters.
type queries struct {
	players       string
	subscriptions string
	channels      string

	createPlayers       string
	createSubscriptions string
	createSubsIndex     string
	createChannels      string

	columns string // qualified column list of the players table, id first

	insert             string
	exists             string
	listSubscribed     string
	deleteUnsubscribed string

	subscribe    string
	unsubscribe  string
	listForGroup string
	findByOwner  string

	setChannelIfUnset string
	setChannel        string
	channel           string
	channelsForPlayer string
}

func quote(name string) string {
	return `"` + name + `"`
}

func buildQueries(d *schema.Descriptor) queries {
	kind := d.Kind()
	q := queries{
		players:       quote(kind + "_players"),
		subscriptions: quote(kind + "_subscriptions"),
		channels:      quote(kind + "_channels"),
	}

	var defs, keys, cols, names, marks []string
	cols = append(cols, "p."+quote(schema.IDField))
	for _, f := range d.Fields() {
		def := quote(f.Name) + " " + f.Type.String()
		if f.Key {
			def += " NOT NULL"
			keys = append(keys, quote(f.Name))
		}
		if f.Type == schema.Text && f.CaseInsensitive {
			def += " COLLATE NOCASE"
		}
		defs = append(defs, def)
		cols = append(cols, "p."+quote(f.Name))
		names = append(names, quote(f.Name))
		marks = append(marks, "?")
	}
	q.columns = strings.Join(cols, ", ")

	q.createPlayers = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	"id" INTEGER PRIMARY KEY AUTOINCREMENT,
	%s,
	UNIQUE (%s)
)`, q.players, strings.Join(defs, ",\n\t"), strings.Join(keys, ", "))

	q.createSubscriptions = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	group_id TEXT NOT NULL,
	player_id INTEGER NOT NULL REFERENCES %s ("id"),
	owner_tag TEXT,
	UNIQUE (group_id, player_id)
)`, q.subscriptions, q.players)
	q.createSubsIndex = fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (player_id)`,
		quote(kind+"_subscriptions_player"), q.subscriptions)

	q.createChannels = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	group_id TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL
)`, q.channels)

	// Only a natural-key conflict is ignored; any other constraint fails.
	q.insert = fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING`,
		q.players, strings.Join(names, ", "), strings.Join(marks, ", "), strings.Join(keys, ", "))
	q.exists = fmt.Sprintf(`SELECT 1 FROM %s WHERE "id" = ?`, q.players)
	q.listSubscribed = fmt.Sprintf(`SELECT %s FROM %s p
	WHERE EXISTS (SELECT 1 FROM %s s WHERE s.player_id = p."id")
	ORDER BY p."id"`, q.columns, q.players, q.subscriptions)
	q.deleteUnsubscribed = fmt.Sprintf(`DELETE FROM %s
	WHERE NOT EXISTS (SELECT 1 FROM %s s WHERE s.player_id = %s."id")`,
		q.players, q.subscriptions, q.players)

	q.subscribe = fmt.Sprintf(`INSERT INTO %s (group_id, player_id, owner_tag) VALUES (?, ?, ?)
	ON CONFLICT (group_id, player_id) DO NOTHING`, q.subscriptions)
	q.unsubscribe = fmt.Sprintf(`DELETE FROM %s WHERE group_id = ? AND player_id = ?`, q.subscriptions)
	q.listForGroup = fmt.Sprintf(`SELECT %s, s.owner_tag AS %s FROM %s s
	JOIN %s p ON p."id" = s.player_id
	WHERE s.group_id = ?
	ORDER BY p."id"`, q.columns, quote(ownerTagAlias), q.subscriptions, q.players)
	q.findByOwner = fmt.Sprintf(`SELECT %s FROM %s s
	JOIN %s p ON p."id" = s.player_id
	WHERE s.group_id = ? AND s.owner_tag = ?
	ORDER BY p."id"
	LIMIT 1`, q.columns, q.subscriptions, q.players)

	q.setChannelIfUnset = fmt.Sprintf(`INSERT INTO %s (group_id, channel_id) VALUES (?, ?)
	ON CONFLICT (group_id) DO NOTHING`, q.channels)
	q.setChannel = fmt.Sprintf(`INSERT INTO %s (group_id, channel_id) VALUES (?, ?)
	ON CONFLICT(group_id) DO UPDATE SET channel_id = excluded.channel_id`, q.channels)
	q.channel = fmt.Sprintf(`SELECT channel_id FROM %s WHERE group_id = ?`, q.channels)
	q.channelsForPlayer = fmt.Sprintf(`SELECT c.group_id, c.channel_id, s.owner_tag FROM %s s
	JOIN %s c ON c.group_id = s.group_id
	WHERE s.player_id = ?
	ORDER BY c.group_id`, q.subscriptions, q.channels)

	return q
}

// selectWhere builds a lookup over the given columns, ANDed together.
func (q queries) selectWhere(columns []string) string {
	conds := make([]string, len(columns))
	for i, c := range columns {
		conds[i] = "p." + quote(c) + " = ?"
	}
	return fmt.Sprintf(`SELECT %s FROM %s p WHERE %s ORDER BY p."id" LIMIT 1`,
		q.columns, q.players, strings.Join(conds, " AND "))
}

// update builds an UPDATE of the given columns of one player.
func (q queries) update(columns []string) string {
	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = quote(c) + " = ?"
	}
	return fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = ?`, q.players, strings.Join(sets, ", "))
}

// signature is the stored fingerprint of a descriptor's layout.
func signature(d *schema.Descriptor) string {
	parts := make([]string, 0, len(d.Fields()))
	for _, f := range d.Fields() {
		s := f.Name + " " + f.Type.String()
		if f.Key {
			s += " key"
		}
		if f.CaseInsensitive {
			s += " nocase"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
