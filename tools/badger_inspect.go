package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

// Read-only dump of the presence keyspace. Two prefixes exist:
// "session:{sessionID}" and "dm:{userID}:{timestamp}:{uuid}".
func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "session:", "Prefix to scan (session: or dm:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	if strings.HasPrefix(*prefix, "session") {
		table.SetHeader([]string{"Session ID", "User ID", "Username", "Connected"})
	} else {
		table.SetHeader([]string{"Index Owner", "Timestamp", "From", "To", "Content"})
	}
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

			err := item.Value(func(v []byte) error {
				row, err := toRow(key, v)
				if err != nil {
					// Log and keep scanning instead of aborting the dump
					fmt.Printf("Error decoding key %s: %v\n", key, err)
					return nil
				}
				table.Append(row)
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

// Stored shapes, mirroring the repository encoding.
type sessionValue struct {
	UserID    string `cbor:"1,keyasint"`
	Username  string `cbor:"2,keyasint"`
	Connected bool   `cbor:"3,keyasint"`
}

type messageValue struct {
	ID      string `cbor:"1,keyasint"`
	Content string `cbor:"2,keyasint"`
	From    string `cbor:"3,keyasint"`
	To      string `cbor:"4,keyasint"`
	At      int64  `cbor:"5,keyasint"`
}

func toRow(key string, value []byte) ([]string, error) {
	if strings.HasPrefix(key, "session:") {
		var s sessionValue
		if err := cbor.Unmarshal(value, &s); err != nil {
			return nil, err
		}
		return []string{
			shorten(strings.TrimPrefix(key, "session:")),
			shorten(s.UserID),
			s.Username,
			fmt.Sprintf("%t", s.Connected),
		}, nil
	}

	var m messageValue
	if err := cbor.Unmarshal(value, &m); err != nil {
		return nil, err
	}
	owner := key
	if parts := strings.SplitN(key, ":", 3); len(parts) >= 2 {
		owner = parts[1]
	}
	return []string{
		shorten(owner),
		time.Unix(0, m.At).UTC().Format("15:04:05"),
		shorten(m.From),
		shorten(m.To),
		m.Content,
	}, nil
}

// shorten keeps the first 8 characters of an identifier for readability.
func shorten(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Log truncate required") {
			// Open in write mode once so badger can truncate, then
			// reopen read-only.
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
