// ledgerctl ejecuta tareas de mantenimiento del libro mayor contra el almacenamiento configurado.
//
// Uso:
//
//	ledgerctl grn-process [--number GRN-2024-00001] [--actor sistema]
//	ledgerctl reconcile [--resource cement]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/storage"
	"github.com/jhoicas/Inventario-ledger/pkg/config"
	"github.com/jhoicas/Inventario-ledger/pkg/logger"
	"github.com/spf13/pflag"
)

// errUnbalanced hace que reconcile termine con código 2.
var errUnbalanced = errors.New("hay recursos descuadrados")

func usage(w io.Writer) {
	fmt.Fprintln(w, "uso: ledgerctl <grn-process|reconcile> [flags]")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "grn-process":
		err = runGRNProcess(ctx, cfg, log, args)
	case "reconcile":
		err = runReconcile(ctx, cfg, log, args)
	case "-h", "--help", "help":
		usage(os.Stdout)
		return
	default:
		usage(os.Stderr)
		os.Exit(1)
	}

	switch {
	case err == nil:
	case errors.Is(err, errUnbalanced):
		os.Exit(2)
	case errors.Is(err, pflag.ErrHelp):
		return
	default:
		log.Error().Err(err).Str("cmd", cmd).Msg("ledgerctl falló")
		os.Exit(1)
	}
}

// runGRNProcess registra en el libro mayor las notas de recepción que aún no tienen asientos.
func runGRNProcess(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := pflag.NewFlagSet("grn-process", pflag.ContinueOnError)
	number := fs.String("number", "", "procesar solo esta nota (GRN-AAAA-NNNNN)")
	actorID := fs.String("actor", "ledgerctl", "usuario que firma los asientos")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	report, err := backend.Service(log).ProcessPendingGoodsReceipts(ctx, entity.Actor{UserID: *actorID}, *number)
	if err != nil {
		return err
	}
	for _, n := range report.Processed {
		fmt.Printf("procesada\t%s\n", n)
	}
	for _, n := range report.Skipped {
		fmt.Printf("omitida\t%s\n", n)
	}
	for n, ferr := range report.Failed {
		fmt.Printf("fallida\t%s\t%v\n", n, ferr)
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d notas fallaron", len(report.Failed))
	}
	return nil
}

// runReconcile compara saldos del libro mayor contra el restante de los lotes.
func runReconcile(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string) error {
	fs := pflag.NewFlagSet("reconcile", pflag.ContinueOnError)
	resourceID := fs.StringP("resource", "r", "", "recurso a revisar; vacío = todos")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	ids := []string{*resourceID}
	if *resourceID == "" {
		resources, err := backend.Resources.List(ctx)
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, r := range resources {
			ids = append(ids, r.ID)
		}
	}

	calc := backend.Calculator()
	unbalanced := 0
	for _, id := range ids {
		r, err := calc.Reconcile(ctx, id)
		if err != nil {
			return err
		}
		printReconciliation(os.Stdout, r)
		if !r.Balanced {
			unbalanced++
		}
	}
	log.Info().Int("resources", len(ids)).Int("unbalanced", unbalanced).Msg("conciliación terminada")
	if unbalanced > 0 {
		return errUnbalanced
	}
	return nil
}

func printReconciliation(w io.Writer, r *balance.Reconciliation) {
	status := "OK"
	if !r.Balanced {
		status = "DESCUADRE"
	}
	fmt.Fprintf(w, "%s\t%s\n", r.ResourceID, status)
	for _, l := range r.Lines {
		fmt.Fprintf(w, "  %-20s libro=%s lotes=%s dif=%s\n",
			l.Location.String(), l.LedgerQuantity.String(), l.BatchQuantity.String(), l.Difference.String())
	}
}
