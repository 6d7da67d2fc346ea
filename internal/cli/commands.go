package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"github.com/tailscale/hujson"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/hcache"
	"github.com/hupe1980/hcache/compress"
	"github.com/hupe1980/hcache/email"
	"github.com/hupe1980/hcache/store"
)

var errNoRecord = errors.New("no usable record")

// checkParallel bounds the caches opened at once by check.
const checkParallel = 4

func newPathCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "path [folder]",
		Short: "Print the database file used for a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.settings(cmd)
			if err != nil {
				return err
			}
			if cfg.HeaderCache == "" {
				return errNoCachePath
			}
			p, err := hcache.DatabasePath(cfg.HeaderCache, args[0], nil, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

// record is the JSON form of a fetched entry.
type record struct {
	UIDValidity uint32       `json:"uidvalidity"`
	CRC         string       `json:"crc"`
	StoredAt    time.Time    `json:"stored_at"`
	Email       *email.Email `json:"email"`
}

func newGetCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [folder] [key]",
		Short: "Fetch a cached header and print it as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			uidvalidity, _ := cmd.Flags().GetUint32("uidvalidity")
			out, _ := cmd.Flags().GetString("out")

			c, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			entry, err := c.Fetch([]byte(args[1]), uidvalidity)
			if err != nil {
				return err
			}
			if entry.Email == nil {
				return fmt.Errorf("%s %q: %w", args[0], args[1], errNoRecord)
			}

			data, err := json.MarshalIndent(record{
				UIDValidity: entry.UIDValidity,
				CRC:         fmt.Sprintf("%08x", entry.CRC),
				StoredAt:    entry.StoredAt().UTC(),
				Email:       entry.Email,
			}, "", "  ")
			if err != nil {
				return err
			}
			data = append(data, '\n')

			if out != "" {
				return atomic.WriteFile(out, bytes.NewReader(data))
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().Uint32("uidvalidity", 0, "Reject records stored under another UIDVALIDITY (0 accepts any)")
	cmd.Flags().String("out", "", "Write the JSON to this file instead of stdout")
	return cmd
}

// readEmail parses a JSON (comments and trailing commas allowed) email
// from path, or from stdin when path is "-".
func readEmail(cmd *cobra.Command, path string) (*email.Email, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	e := email.New()
	if err := json.Unmarshal(standardized, e); err != nil {
		return nil, fmt.Errorf("invalid email JSON: %w", err)
	}
	if e.Env == nil {
		e.Env = &email.Envelope{}
	}
	return e, nil
}

func newPutCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put [folder] [key]",
		Short: "Store a header read from JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, _ := cmd.Flags().GetString("from")
			uidvalidity, _ := cmd.Flags().GetUint32("uidvalidity")

			e, err := readEmail(cmd, from)
			if err != nil {
				return err
			}

			c, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			return c.Store([]byte(args[1]), e, uidvalidity)
		},
	}
	cmd.Flags().String("from", "-", "JSON file holding the email (- for stdin)")
	cmd.Flags().Uint32("uidvalidity", 0, "UIDVALIDITY to store (0 stamps the current time)")
	return cmd
}

func newDelCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "del [folder] [key]",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")

			c, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			if raw {
				return c.DeleteRaw([]byte(args[1]))
			}
			return c.Delete([]byte(args[1]))
		},
	}
	cmd.Flags().Bool("raw", false, "Delete a raw record instead of a header")
	return cmd
}

func newRawCmd(g *globals) *cobra.Command {
	rawCmd := &cobra.Command{
		Use:   "raw",
		Short: "Read and write raw records",
	}

	rawCmd.AddCommand(&cobra.Command{
		Use:   "get [folder] [key]",
		Short: "Write a raw record to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			v, ok, err := c.FetchRaw([]byte(args[1]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s %q: %w", args[0], args[1], errNoRecord)
			}
			_, err = cmd.OutOrStdout().Write(v)
			return err
		},
	}, &cobra.Command{
		Use:   "put [folder] [key] [value]",
		Short: "Store a raw record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.open(cmd, args[0])
			if err != nil {
				return err
			}
			defer c.Close()

			return c.StoreRaw([]byte(args[1]), []byte(args[2]))
		},
	})
	return rawCmd
}

func newCRCCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "crc",
		Short: "Print the record fingerprint for the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.settings(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%08x\n", hcache.SchemaCRC(cfg.Spam, cfg.NoSpam))
			return nil
		},
	}
}

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List compiled-in store backends and compression methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tNAME\tLEVELS\tVERSION\tNOTES")
			for _, name := range store.Names() {
				b, _ := store.Lookup(name)
				fmt.Fprintf(w, "store\t%s\t-\t%s\t\n", name, b.Version())
			}
			for _, m := range compress.Methods() {
				fmt.Fprintf(w, "compress\t%s\t%d-%d (default %d)\t%s\t%s\n", m.Name, m.MinLevel, m.MaxLevel, m.DefaultLevel, m.Version, m.LevelDoc)
			}
			return w.Flush()
		},
	}
}

func newCheckCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check [folder]...",
		Short: "Open the cache of every folder and report failures",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.settings(cmd)
			if err != nil {
				return err
			}
			if cfg.HeaderCache == "" {
				return errNoCachePath
			}
			logger := g.logger(cmd)

			results := make([]string, len(args))
			var (
				mu     sync.Mutex
				failed int
			)

			var eg errgroup.Group
			eg.SetLimit(checkParallel)
			for i, folder := range args {
				i, folder := i, folder
				eg.Go(func() error {
					c, err := hcache.Open(cfg.HeaderCache, folder, nil,
						hcache.WithConfig(cfg),
						hcache.WithLogger(logger),
					)
					if err == nil {
						results[i] = "ok\t" + folder + "\t" + c.Path()
						err = c.Close()
					}
					if err != nil {
						results[i] = "FAIL\t" + folder + "\t" + err.Error()
						mu.Lock()
						failed++
						mu.Unlock()
					}
					return nil
				})
			}
			_ = eg.Wait()

			for _, line := range results {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d caches failed to open", failed, len(args))
			}
			return nil
		},
	}
}
