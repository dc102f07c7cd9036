package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"steward/internal/platform/config"
	"steward/internal/rights"
	"steward/internal/token"
)

const defaultTokenTTL = 12 * time.Hour

func runRights(w io.Writer, format string) error {
	switch format {
	case "json":
		type row struct {
			ID          rights.ID `json:"id"`
			Label       string    `json:"label"`
			Description string    `json:"description"`
		}
		out := []row{}
		for r := range rights.All() {
			out = append(out, row{ID: r.ID, Label: r.Label, Description: r.Description})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLABEL\tDESCRIPTION")
		for r := range rights.All() {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Label, r.Description)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

type issueTokenInput struct {
	Subject            string
	Name               string
	Position           string
	Rights             []string
	MustChangePassword bool
	TTL                time.Duration
}

var errNoSigningKey = errors.New("DEV_SIGNING_KEY is not set")

func runIssueToken(w io.Writer, in issueTokenInput) error {
	cfg := config.Load()
	if cfg.Auth.DevSigningKey == "" {
		return errNoSigningKey
	}
	granted, unknown := rights.Parse(in.Rights)
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %v", rights.ErrUnknownCapability, unknown)
	}
	values := make([]string, 0, len(granted))
	for _, id := range granted {
		values = append(values, string(id))
	}

	raw, err := token.NewIssuer(cfg.Auth.DevSigningKey, "steward-dev").Issue(token.Profile{
		SubjectID:          in.Subject,
		Name:               in.Name,
		Position:           in.Position,
		Rights:             values,
		MustChangePassword: in.MustChangePassword,
	}, in.TTL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, raw)
	return err
}
