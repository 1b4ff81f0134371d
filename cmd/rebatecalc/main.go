/*
main.go - One-shot rebate calculation from the command line

PURPOSE:
  Runs a single calculation and prints the outcome. Useful for checking a
  catalog or a database without starting the HTTP server.

DATA SOURCES (first match wins):
  -db       Existing SQLite database
  -catalog  JSON catalog file loaded into memory
  (none)    The default catalog: rebate1 = fixed cash 100, product1 priced 50

COMMAND-LINE FLAGS:
  -rebate     Rebate identifier (default: rebate1)
  -product    Product identifier (default: product1)
  -volume     Purchase volume (default: 10)
  -selector   direct | determined (default: direct)
  -log-level  debug | info | warn | error (default: warn)

EXIT STATUS:
  0 when the calculation succeeds, 1 otherwise.

EXAMPLES:
  rebatecalc
  rebatecalc -selector determined -volume 3
  rebatecalc -catalog ./catalog.json -rebate rate15 -product all-in
  rebatecalc -db ./data/rebates.db -rebate rebate1 -product product1
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/warp/rebate-engine/factory"
	"github.com/warp/rebate-engine/logger"
	"github.com/warp/rebate-engine/rebate"
	"github.com/warp/rebate-engine/rebate/store"
	"github.com/warp/rebate-engine/store/sqlite"
	"go.uber.org/zap"
)

type options struct {
	rebateID  string
	productID string
	volume    string
	selector  string
	catalog   string
	dbPath    string
	logLevel  string
}

func main() {
	var opts options
	flag.StringVar(&opts.rebateID, "rebate", "rebate1", "Rebate identifier")
	flag.StringVar(&opts.productID, "product", "product1", "Product identifier")
	flag.StringVar(&opts.volume, "volume", "10", "Purchase volume")
	flag.StringVar(&opts.selector, "selector", string(rebate.SelectorDirect), "Rule selection policy: direct or determined")
	flag.StringVar(&opts.catalog, "catalog", "", "JSON catalog file")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite database path")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	flag.Parse()

	log, err := logger.NewDevelopment(opts.logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ok, err := run(context.Background(), opts, log, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hints := errors.GetAllHints(err); len(hints) > 0 {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hints[0])
		}
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}

// dataSource is what the calculation reads from and writes to.
type dataSource interface {
	rebate.RebateStore
	rebate.ProductStore
}

func run(ctx context.Context, opts options, log *zap.SugaredLogger, out io.Writer) (bool, error) {
	volume, err := decimal.NewFromString(opts.volume)
	if err != nil {
		return false, errors.Mark(errors.Wrapf(err, "invalid volume %q", opts.volume), rebate.ErrInvalidArgument)
	}

	selector, err := rebate.NewSelector(rebate.SelectorMode(opts.selector), rebate.DefaultRegistry())
	if err != nil {
		return false, err
	}

	source, closeSource, err := openSource(ctx, opts)
	if err != nil {
		return false, err
	}
	defer closeSource()

	svc := rebate.NewService(source, source, selector, rebate.WithLogger(log))
	result, err := svc.Calculate(ctx, rebate.CalculateRebateRequest{
		RebateIdentifier:  opts.rebateID,
		ProductIdentifier: opts.productID,
		Volume:            volume,
	})
	if err != nil {
		return false, err
	}

	printResult(out, opts, result)
	return result.Success, nil
}

func openSource(ctx context.Context, opts options) (dataSource, func(), error) {
	if opts.dbPath != "" {
		db, err := sqlite.New(opts.dbPath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { db.Close() }, nil
	}

	catalogJSON := factory.DefaultCatalogJSON()
	if opts.catalog != "" {
		data, err := os.ReadFile(opts.catalog)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "read catalog %q", opts.catalog)
		}
		catalogJSON = string(data)
	}

	catalog, err := factory.NewCatalogFactory().ParseCatalog(catalogJSON)
	if err != nil {
		return nil, nil, err
	}
	mem := store.NewMemory()
	if err := factory.Load(ctx, mem, catalog); err != nil {
		return nil, nil, err
	}
	return mem, func() {}, nil
}

func printResult(out io.Writer, opts options, result rebate.CalculateRebateResult) {
	if result.Success {
		fmt.Fprintf(out, "%s selector: rebate calculation successful\n", opts.selector)
		fmt.Fprintf(out, "  rebate:    %s\n", opts.rebateID)
		fmt.Fprintf(out, "  product:   %s\n", opts.productID)
		fmt.Fprintf(out, "  incentive: %s\n", result.Incentive)
		fmt.Fprintf(out, "  amount:    %s\n", result.Amount)
		return
	}
	fmt.Fprintf(out, "%s selector: rebate calculation failed (%s)\n", opts.selector, result.Reason)
}
