// Command inspect dumps the store contents of a badger directory as
// tables, for poking at a stopped server's data.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"

	"chat-core/domain"
	"chat-core/store"

	"github.com/dgraph-io/badger/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "", "Path to badger DB")
	bodyWidth := flag.Int("body-width", 48, "Truncate message bodies to this many runes")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("-db is required")
	}

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	st, err := store.New(slog.Default(), db)
	if err != nil {
		log.Fatal("Error while loading store: ", err)
	}

	printUsers(st)
	printGroups(st)
	printMessages(st, *bodyWidth)
}

func newTable(headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(headers)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printUsers(st *store.Store) {
	users := st.Users()
	sort.Slice(users, func(i, j int) bool { return users[i].Identity < users[j].Identity })

	color.Bold.Printf("USERS (%d)\n", len(users))
	table := newTable([]string{"Identity", "Status", "Username", "Groups", "Avatar"})
	for _, u := range users {
		name := ""
		if u.Username != nil {
			name = *u.Username
		}
		table.Append([]string{
			string(u.Identity),
			statusString(u.Status),
			name,
			joinGroupIDs(u.Groups),
			avatarString(u.Avatar),
		})
	}
	table.Render()
	fmt.Println()
}

func printGroups(st *store.Store) {
	groups := st.Groups()
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })

	color.Bold.Printf("GROUPS (%d)\n", len(groups))
	table := newTable([]string{"ID", "Owner", "Name", "Members", "Avatar"})
	for _, g := range groups {
		name := ""
		if g.Name != nil {
			name = *g.Name
		}
		members := make([]string, 0, len(g.Users))
		for _, identity := range g.Users {
			members = append(members, string(identity))
		}
		table.Append([]string{
			fmt.Sprintf("%d", g.ID),
			string(g.Owner),
			name,
			strings.Join(members, ", "),
			avatarString(g.Avatar),
		})
	}
	table.Render()
	fmt.Println()
}

func printMessages(st *store.Store, bodyWidth int) {
	messages := st.Messages()
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })

	color.Bold.Printf("MESSAGES (%d)\n", len(messages))
	table := newTable([]string{"ID", "Receiver", "Sender", "Body", "Created", "Updated"})
	for _, m := range messages {
		table.Append([]string{
			fmt.Sprintf("%d", m.ID),
			receiverString(m.Receiver),
			string(m.Sender),
			truncate(m.Body, bodyWidth),
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			m.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func statusString(status domain.UserStatus) string {
	switch s := status.(type) {
	case domain.Online:
		return color.Green.Sprint("online")
	case domain.Offline:
		return fmt.Sprintf("offline since %s", s.At.Format("2006-01-02 15:04:05"))
	case domain.OnCall:
		return color.Yellow.Sprint("on call")
	default:
		return "?"
	}
}

func receiverString(r domain.Receiver) string {
	switch receiver := r.(type) {
	case domain.ToUser:
		return "user " + string(receiver.Identity)
	case domain.ToGroup:
		return fmt.Sprintf("group %d", receiver.ID)
	default:
		return "?"
	}
}

func avatarString(avatar []byte) string {
	if len(avatar) == 0 {
		return ""
	}
	return fmt.Sprintf("%s, %d B", mimetype.Detect(avatar).String(), len(avatar))
}

func joinGroupIDs(ids []domain.GroupID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-1]) + "…"
}
