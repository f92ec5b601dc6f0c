// Command inspect dumps the contents of a running server's BadgerDB as a
// table, decoded per key family. Read-only, safe against the server's
// lock.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"notifyhub/domain"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "", "Prefix to scan (empty scans everything)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "ID", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			// Secondary indexes carry no payload worth showing
			if strings.HasPrefix(key, "idx:") || strings.HasPrefix(key, "useremail:") ||
				strings.HasPrefix(key, "member:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				kind, id, detail := describe(key, v)
				table.Append([]string{key, kind, shorten(id), detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

// describe decodes the value according to its key family and returns a
// human readable row.
func describe(key string, val []byte) (kind, id, detail string) {
	switch {
	case strings.HasPrefix(key, "user:"):
		var u struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		}
		if err := json.Unmarshal(val, &u); err != nil {
			return raw(key, val)
		}
		return color.Green.Render("USER"), u.ID, fmt.Sprintf("%s <%s>", u.Name, u.Email)
	case strings.HasPrefix(key, "project:"):
		var p domain.Project
		if err := json.Unmarshal(val, &p); err != nil {
			return raw(key, val)
		}
		return color.Cyan.Render("PROJECT"), p.ID, fmt.Sprintf("%s (%d members)", p.Name, len(p.Members))
	case strings.HasPrefix(key, "task:"):
		var t domain.Task
		if err := json.Unmarshal(val, &t); err != nil {
			return raw(key, val)
		}
		assignee := t.AssignedTo
		if assignee == "" {
			assignee = "unassigned"
		}
		return color.Yellow.Render("TASK"), t.ID, fmt.Sprintf("%s [%s] -> %s", t.Name, t.Status, shorten(assignee))
	case strings.HasPrefix(key, "msg:"):
		var m domain.Message
		if err := json.Unmarshal(val, &m); err != nil {
			return raw(key, val)
		}
		return color.Blue.Render("MSG"), m.ID, fmt.Sprintf("%s %s: %s",
			m.CreatedAt.Format("15:04:05"), shorten(m.AuthorID), m.Content)
	case strings.HasPrefix(key, "notif:"):
		var n domain.Notification
		if err := json.Unmarshal(val, &n); err != nil {
			return raw(key, val)
		}
		state := "unread"
		if n.Read {
			state = "read"
		}
		return color.Magenta.Render("NOTIF"), n.ID, fmt.Sprintf("[%s] %s", state, n.Text)
	}
	return raw(key, val)
}

func raw(_ string, val []byte) (string, string, string) {
	detail := string(val)
	if len(detail) > 60 {
		detail = detail[:60] + "..."
	}
	return "RAW", "", detail
}

func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	// BypassLockGuard allows opening while the server holds the lock
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
