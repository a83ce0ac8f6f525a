package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"bankcore/internal/cache"
	"bankcore/internal/config"
	"bankcore/internal/core"
	"bankcore/internal/ledger"
	"bankcore/internal/services"
	"bankcore/internal/storage"
)

const usage = `usage: bankcore <command> [flags]

commands:
  accounts create|list|delete
  transfer                   perform a transfer
  installment                pay the next loan installment
  definitions create|update|delete|list|upcoming
  records recent|list|delete
  history                    breakdown of the last month
  projection                 breakdown of the coming month
  migrate status
`

// usageError marks bad invocations, reported with exit status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func isUsageError(err error) bool {
	var u usageError
	return errors.As(err, &u) || errors.Is(err, flag.ErrHelp)
}

type app struct {
	cfg         *config.Config
	store       ledger.Store
	transfers   *services.TransferService
	definitions *services.DefinitionService
	analytics   *services.Analytics
	out         io.Writer
	errOut      io.Writer
	now         func() time.Time
}

func newApp(store ledger.Store, publisher ledger.RecordPublisher, c cache.Cache[services.BreakdownCacheEntry], cfg *config.Config, out io.Writer) *app {
	analytics := services.NewAnalytics(store,
		services.WithAnalyticsCache(c),
		services.WithAnalyticsLocation(cfg.Location()))
	engine := services.NewEngine(store)
	return &app{
		cfg:         cfg,
		store:       store,
		transfers:   services.NewTransferService(store, engine, publisher, analytics),
		definitions: services.NewDefinitionService(store),
		analytics:   analytics,
		out:         out,
		errOut:      os.Stderr,
		now:         time.Now,
	}
}

type command func(ctx context.Context, args []string) error

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError{msg: "missing command"}
	}
	groups := map[string]map[string]command{
		"accounts": {
			"create": a.accountCreate,
			"list":   a.accountList,
			"delete": a.accountDelete,
		},
		"definitions": {
			"create":   a.definitionCreate,
			"update":   a.definitionUpdate,
			"delete":   a.definitionDelete,
			"list":     a.definitionList,
			"upcoming": a.definitionUpcoming,
		},
		"records": {
			"recent": a.recordRecent,
			"list":   a.recordList,
			"delete": a.recordDelete,
		},
		"migrate": {
			"status": a.migrateStatus,
		},
	}
	single := map[string]command{
		"transfer":    a.transfer,
		"installment": a.installment,
		"history":     a.history,
		"projection":  a.projection,
	}

	if cmd, ok := single[args[0]]; ok {
		return cmd(ctx, args[1:])
	}
	sub, ok := groups[args[0]]
	if !ok {
		return usageError{msg: fmt.Sprintf("unknown command %q", args[0])}
	}
	if len(args) < 2 {
		return usageError{msg: fmt.Sprintf("%s: missing subcommand", args[0])}
	}
	cmd, ok := sub[args[1]]
	if !ok {
		return usageError{msg: fmt.Sprintf("%s: unknown subcommand %q", args[0], args[1])}
	}
	return cmd(ctx, args[2:])
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) accountCreate(ctx context.Context, args []string) error {
	var in accountInput
	fs := a.flags("accounts create")
	fs.StringVar(&in.Number, "number", "", "account number")
	fs.StringVar(&in.Name, "name", "", "holder's full name")
	fs.StringVar(&in.Email, "email", "", "contact email for notifications")
	fs.StringVar(&in.Balance, "balance", "", "opening balance, e.g. 100.00")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return usageError{msg: err.Error()}
	}
	acc := in.account()
	acc.CreatedAt = a.now()
	created, err := a.store.Accounts().Create(ctx, acc)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %d created (%s)\n", created.ID, created.AccountNumber)
	return nil
}

func (a *app) accountList(ctx context.Context, args []string) error {
	if err := a.flags("accounts list").Parse(args); err != nil {
		return err
	}
	accounts, err := a.store.Accounts().List(ctx)
	if err != nil {
		return err
	}
	return printAccounts(a.out, accounts)
}

func (a *app) accountDelete(ctx context.Context, args []string) error {
	fs := a.flags("accounts delete")
	id := fs.Int64("id", 0, "account id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return usageError{msg: "-id is required"}
	}
	if err := a.store.Accounts().Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %d deleted\n", *id)
	return nil
}

func (a *app) transfer(ctx context.Context, args []string) error {
	var in transferInput
	fs := a.flags("transfer")
	fs.Int64Var(&in.From, "from", 0, "sender account id")
	fs.StringVar(&in.Amount, "amount", "", "amount, e.g. 12.50")
	fs.StringVar(&in.Category, "category", "", "one of "+categoryList())
	fs.StringVar(&in.Title, "title", "", "transfer title")
	fs.StringVar(&in.Receiver, "receiver", "", "receiver name")
	fs.StringVar(&in.To, "to", "", "destination account number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return usageError{msg: err.Error()}
	}
	result, err := a.transfers.Perform(ctx, in.request(a.now()))
	if err != nil {
		return err
	}
	printTransfer(a.out, result.Records())
	return nil
}

func (a *app) installment(ctx context.Context, args []string) error {
	var in installmentInput
	fs := a.flags("installment")
	fs.Int64Var(&in.Owner, "owner", 0, "paying account id")
	fs.Int64Var(&in.Loan, "loan", 0, "loan id")
	fs.StringVar(&in.Rate, "rate", "", "installment amount")
	fs.IntVar(&in.Rates, "rates", 0, "total number of installments")
	fs.IntVar(&in.Left, "left", 0, "installments left to pay")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return usageError{msg: err.Error()}
	}
	result, err := a.transfers.PayInstallment(ctx, in.loan(), a.now())
	if err != nil {
		return err
	}
	printTransfer(a.out, result.Records())
	return nil
}

func (a *app) orderFlags(fs *flag.FlagSet, in *orderInput) {
	fs.StringVar(&in.Amount, "amount", "", "amount, e.g. 12.50")
	fs.StringVar(&in.Receiver, "receiver", "", "receiver name")
	fs.StringVar(&in.To, "to", "", "destination account number")
	fs.StringVar(&in.Category, "category", "", "one of "+categoryList())
	fs.StringVar(&in.Title, "title", "", "transfer title")
	fs.StringVar(&in.Due, "due", "", "next due date, YYYY-MM-DD")
}

func (a *app) definitionCreate(ctx context.Context, args []string) error {
	var in definitionInput
	fs := a.flags("definitions create")
	fs.Int64Var(&in.Owner, "owner", 0, "owner account id")
	a.orderFlags(fs, &in.orderInput)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return usageError{msg: err.Error()}
	}
	d := in.definition(in.Owner)
	d.CreatedAt = a.now()
	created, err := a.definitions.Create(ctx, d)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "definition %d created, next due %s\n", created.ID, created.NextDueDate)
	return nil
}

func (a *app) definitionUpdate(ctx context.Context, args []string) error {
	var in definitionUpdateInput
	fs := a.flags("definitions update")
	fs.Int64Var(&in.ID, "id", 0, "definition id")
	a.orderFlags(fs, &in.orderInput)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateInput(in); err != nil {
		return usageError{msg: err.Error()}
	}
	updated, err := a.definitions.Update(ctx, in.ID, in.definition(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "definition %d updated, next due %s\n", updated.ID, updated.NextDueDate)
	return nil
}

func (a *app) definitionDelete(ctx context.Context, args []string) error {
	fs := a.flags("definitions delete")
	id := fs.Int64("id", 0, "definition id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return usageError{msg: "-id is required"}
	}
	if err := a.definitions.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "definition %d deleted\n", *id)
	return nil
}

func (a *app) definitionList(ctx context.Context, args []string) error {
	fs := a.flags("definitions list")
	owner := fs.Int64("owner", 0, "owner account id, 0 for all")
	category := fs.String("category", "", "filter by category")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f := ledger.DefinitionFilter{OwnerID: *owner}
	if *category != "" {
		c, err := core.ParseCategory(*category)
		if err != nil {
			return usageError{msg: fmt.Sprintf("-category: %v", err)}
		}
		f.Category = c
	}
	defs, err := a.definitions.List(ctx, f)
	if err != nil {
		return err
	}
	return printDefinitions(a.out, defs)
}

func (a *app) definitionUpcoming(ctx context.Context, args []string) error {
	fs := a.flags("definitions upcoming")
	owner := fs.Int64("owner", 0, "owner account id")
	n := fs.Int("n", services.DefaultUpcomingLimit, "how many")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner <= 0 {
		return usageError{msg: "-owner is required"}
	}
	defs, err := a.definitions.Upcoming(ctx, *owner, *n)
	if err != nil {
		return err
	}
	return printDefinitions(a.out, defs)
}

func (a *app) recordRecent(ctx context.Context, args []string) error {
	fs := a.flags("records recent")
	owner := fs.Int64("owner", 0, "owner account id")
	n := fs.Int("n", services.DefaultRecentLimit, "how many")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner <= 0 {
		return usageError{msg: "-owner is required"}
	}
	records, err := a.transfers.Recent(ctx, *owner, *n)
	if err != nil {
		return err
	}
	return printRecords(a.out, records, a.now())
}

func (a *app) recordList(ctx context.Context, args []string) error {
	fs := a.flags("records list")
	owner := fs.Int64("owner", 0, "owner account id, 0 for all")
	direction := fs.String("direction", "", "OUTGOING or INCOMING")
	category := fs.String("category", "", "filter by category")
	limit := fs.Int("limit", 0, "maximum rows, 0 for all")
	offset := fs.Int("offset", 0, "rows to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f := ledger.RecordFilter{OwnerID: *owner, Limit: *limit, Offset: *offset, Newest: true}
	if *direction != "" {
		d := core.Direction(*direction)
		if err := d.Validate(); err != nil {
			return usageError{msg: fmt.Sprintf("-direction: %v", err)}
		}
		f.Direction = d
	}
	if *category != "" {
		c, err := core.ParseCategory(*category)
		if err != nil {
			return usageError{msg: fmt.Sprintf("-category: %v", err)}
		}
		f.Category = c
	}
	records, err := a.transfers.List(ctx, f)
	if err != nil {
		return err
	}
	return printRecords(a.out, records, a.now())
}

func (a *app) recordDelete(ctx context.Context, args []string) error {
	fs := a.flags("records delete")
	id := fs.Int64("id", 0, "record id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return usageError{msg: "-id is required"}
	}
	if err := a.transfers.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "record %d deleted\n", *id)
	return nil
}

func (a *app) history(ctx context.Context, args []string) error {
	fs := a.flags("history")
	owner := fs.Int64("owner", 0, "owner account id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner <= 0 {
		return usageError{msg: "-owner is required"}
	}
	b, err := a.analytics.History(ctx, *owner, a.now())
	if err != nil {
		return err
	}
	return printBreakdown(a.out, b)
}

func (a *app) projection(ctx context.Context, args []string) error {
	fs := a.flags("projection")
	owner := fs.Int64("owner", 0, "owner account id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *owner <= 0 {
		return usageError{msg: "-owner is required"}
	}
	b, err := a.analytics.Projection(ctx, *owner, a.now())
	if err != nil {
		return err
	}
	return printBreakdown(a.out, b)
}

func (a *app) migrateStatus(_ context.Context, args []string) error {
	if err := a.flags("migrate status").Parse(args); err != nil {
		return err
	}
	if a.cfg.DataBackend != "sqlite" {
		return fmt.Errorf("migrations apply to the sqlite backend only, DATA_BACKEND is %q", a.cfg.DataBackend)
	}
	version, dirty, err := storage.MigrationVersion(a.cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "schema version %d", version)
	if dirty {
		fmt.Fprint(a.out, " (dirty)")
	}
	fmt.Fprintln(a.out)
	return nil
}
