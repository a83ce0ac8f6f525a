package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"bankcore/internal/cache"
	"bankcore/internal/config"
	"bankcore/internal/core"
	"bankcore/internal/services"
	"bankcore/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := &config.Config{DataBackend: "memory", Timezone: "UTC"}
	a := newApp(memory.New(), nil, cache.Noop[services.BreakdownCacheEntry]{}, cfg, &out)
	a.errOut = io.Discard
	a.now = func() time.Time { return testNow }
	return a, &out
}

func mustRun(t *testing.T, a *app, args ...string) {
	t.Helper()
	if err := a.run(context.Background(), args); err != nil {
		t.Fatalf("run(%v) error = %v", args, err)
	}
}

func TestTransferFlow(t *testing.T) {
	a, out := newTestApp(t)
	mustRun(t, a, "accounts", "create", "-number", "PL01", "-name", "Ada Lovelace", "-email", "ada@example.com", "-balance", "500")
	mustRun(t, a, "accounts", "create", "-number", "PL02", "-name", "Charles Babbage", "-balance", "50")
	mustRun(t, a, "transfer", "-from", "1", "-amount", "200", "-category", "bills",
		"-title", "rent", "-receiver", "Charles", "-to", "PL02")

	out.Reset()
	mustRun(t, a, "accounts", "list")
	got := out.String()
	for _, want := range []string{"300.00", "250.00"} {
		if !strings.Contains(got, want) {
			t.Errorf("accounts list missing %s:\n%s", want, got)
		}
	}

	out.Reset()
	mustRun(t, a, "history", "-owner", "1")
	got = out.String()
	for _, want := range []string{"total outgoing", "200.00", "100.00%", "Bills"} {
		if !strings.Contains(got, want) {
			t.Errorf("history missing %q:\n%s", want, got)
		}
	}

	out.Reset()
	mustRun(t, a, "records", "recent", "-owner", "2")
	if !strings.Contains(out.String(), "+200.00") {
		t.Errorf("recent records of receiver missing incoming row:\n%s", out.String())
	}
}

func TestInputValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing amount", []string{"transfer", "-from", "1", "-category", "BILLS", "-title", "t", "-receiver", "r", "-to", "X"}, "-amount: is required"},
		{"bad category", []string{"transfer", "-from", "1", "-amount", "5", "-category", "PETS", "-title", "t", "-receiver", "r", "-to", "X"}, "unknown category"},
		{"bad email", []string{"accounts", "create", "-number", "PL09", "-name", "X", "-email", "nope"}, "invalid email"},
		{"bad date", []string{"definitions", "create", "-owner", "1", "-amount", "5", "-receiver", "r", "-to", "X", "-category", "BILLS", "-title", "t", "-due", "31/03/2024"}, "-due: must be a date"},
		{"more left than total", []string{"installment", "-owner", "1", "-loan", "2", "-rate", "10", "-rates", "3", "-left", "4"}, "-left: must not exceed -rates"},
		{"unknown command", []string{"bogus"}, "unknown command"},
		{"missing subcommand", []string{"definitions"}, "missing subcommand"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestApp(t)
			err := a.run(context.Background(), tt.args)
			if !isUsageError(err) {
				t.Fatalf("error = %v, want usage error", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestDefinitionCommands(t *testing.T) {
	a, out := newTestApp(t)
	mustRun(t, a, "accounts", "create", "-number", "PL01", "-name", "Ada", "-balance", "500")

	create := []string{"definitions", "create", "-owner", "1", "-amount", "120.50", "-receiver", "Landlord",
		"-to", "PL77", "-category", "BILLS", "-title", "rent", "-due", "2024-03-31"}
	mustRun(t, a, create...)

	err := a.run(context.Background(), create)
	if !errors.Is(err, core.ErrDuplicateDefinition) {
		t.Fatalf("duplicate create error = %v, want %v", err, core.ErrDuplicateDefinition)
	}

	defs, err := a.definitions.ListByOwner(context.Background(), 1)
	if err != nil || len(defs) != 1 {
		t.Fatalf("ListByOwner() = %v, %v", defs, err)
	}
	id := strconv.FormatInt(defs[0].ID, 10)

	mustRun(t, a, "definitions", "update", "-id", id, "-amount", "130", "-receiver", "Landlord",
		"-to", "PL77", "-category", "BILLS", "-title", "rent", "-due", "2024-04-30")

	out.Reset()
	mustRun(t, a, "definitions", "upcoming", "-owner", "1")
	if !strings.Contains(out.String(), "2024-04-30") || !strings.Contains(out.String(), "130.00") {
		t.Errorf("upcoming output:\n%s", out.String())
	}

	out.Reset()
	mustRun(t, a, "projection", "-owner", "1")
	if strings.Contains(out.String(), "130.00") {
		t.Errorf("definition due after a month should not be projected:\n%s", out.String())
	}

	mustRun(t, a, "definitions", "delete", "-id", id)
	if err := a.run(context.Background(), []string{"definitions", "delete", "-id", id}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete error = %v, want %v", err, core.ErrNotFound)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	a, _ := newTestApp(t)
	mustRun(t, a, "accounts", "create", "-number", "PL01", "-name", "Ada", "-balance", "10")
	err := a.run(context.Background(), []string{"transfer", "-from", "1", "-amount", "10.01",
		"-category", "OTHER", "-title", "t", "-receiver", "r", "-to", "EXT"})
	if !errors.Is(err, core.ErrInsufficientBalance) {
		t.Errorf("error = %v, want %v", err, core.ErrInsufficientBalance)
	}
	if isUsageError(err) {
		t.Error("domain errors are not usage errors")
	}
}

func TestMigrateStatusNeedsSQLite(t *testing.T) {
	a, _ := newTestApp(t)
	if err := a.run(context.Background(), []string{"migrate", "status"}); err == nil {
		t.Error("expected error on memory backend")
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{7, "0.07"},
		{-7, "-0.07"},
		{123456, "1,234.56"},
		{100000000, "1,000,000.00"},
	}
	for _, tt := range tests {
		if got := formatMoney(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("formatMoney(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
