package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/zRyyH/leiturista-hidro/internal/app"
	"github.com/zRyyH/leiturista-hidro/internal/auth/session"
	apierrors "github.com/zRyyH/leiturista-hidro/internal/errors"
	"github.com/zRyyH/leiturista-hidro/internal/models"
	"github.com/zRyyH/leiturista-hidro/internal/service"
)

// errNotAuthenticated - команда требует входа.
var errNotAuthenticated = session.ErrSessionExpired

// userMessage - текст ошибки для терминала, тот же, что видит мобильный интерфейс.
func userMessage(err error) string {
	status, resp := apierrors.ToHTTP(err)
	if status == http.StatusInternalServerError {
		return err.Error()
	}
	return resp.Error.Message
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func requireSession(ctx context.Context, a *app.App) error {
	if !a.Gate.IsAuthenticated(ctx) {
		return errNotAuthenticated
	}
	return nil
}

func runLogin(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("login")
	email := fs.String("email", "", "e-mail")
	password := fs.String("password", os.Getenv("LEITURISTA_PASSWORD"), "senha (ou LEITURISTA_PASSWORD)")
	if err := parse(fs, args); err != nil {
		return err
	}

	u, err := a.Login(ctx, *email, *password)
	if err != nil {
		return err
	}

	name := *email
	if u != nil {
		name = u.DisplayName()
	}
	fmt.Fprintf(out, "Bem-vindo, %s\n", name)

	return nil
}

func runLogout(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	a.Logout(ctx)
	fmt.Fprintln(out, "Sessão encerrada.")

	return nil
}

func runWhoami(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	if err := requireSession(ctx, a); err != nil {
		return err
	}

	u, ok := a.Gate.CurrentUser(ctx)
	if !ok {
		fmt.Fprintln(out, "(sem dados do usuário)")
		return nil
	}
	fmt.Fprintf(out, "%s <%s>\n", u.DisplayName(), u.Email)

	return nil
}

func runCondominiums(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	if err := requireSession(ctx, a); err != nil {
		return err
	}

	items, err := a.Readings.ListCondominiums(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tNOME")
	for i, c := range items {
		mark := ""
		if i == 0 {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", mark, c.ID, c.Name)
	}

	return tw.Flush()
}

func runPending(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("leituras")
	condo := fs.Int64("condominio", 0, "id do condomínio (padrão: o primeiro)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireSession(ctx, a); err != nil {
		return err
	}

	if *condo == 0 {
		items, err := a.Readings.ListCondominiums(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(out, "Nenhum condomínio disponível.")
			return nil
		}
		*condo = items[0].ID
	}

	readings, err := a.Readings.ListPending(ctx, *condo)
	if err != nil {
		return err
	}
	if len(readings) == 0 {
		fmt.Fprintln(out, "Nenhuma leitura pendente.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUNIDADE\tANTERIOR\tDATA")
	for _, r := range readings {
		v := models.ReadingViewFrom(r)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.ID, v.Unit, models.FormatValue(v.PreviousValue), v.Created)
	}

	return tw.Flush()
}

func runReading(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("leitura")
	id := fs.Int64("id", 0, "id da leitura")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireSession(ctx, a); err != nil {
		return err
	}

	r, err := a.Readings.GetReading(ctx, *id)
	if err != nil {
		return err
	}

	printReading(out, models.ReadingViewFrom(*r))

	return nil
}

func runSubmit(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	fs := newFlags("enviar")
	id := fs.Int64("id", 0, "id da leitura")
	value := fs.String("valor", "", "valor lido no medidor")
	photoPath := fs.String("foto", "", "arquivo com a foto do medidor")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireSession(ctx, a); err != nil {
		return err
	}

	in := service.SubmitInput{ReadingID: *id, Value: *value, PhotoName: *photoPath}
	if *photoPath != "" {
		data, err := os.ReadFile(*photoPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read photo: %w", err)
		}
		in.Photo = data
	}

	r, err := a.Readings.Submit(ctx, in)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Leitura enviada.")
	printReading(out, models.ReadingViewFrom(*r))

	return nil
}

func printReading(out io.Writer, v models.ReadingView) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%d\n", v.ID)
	fmt.Fprintf(tw, "Unidade\t%s\n", v.Unit)
	fmt.Fprintf(tw, "Status\t%s\n", v.Status)
	fmt.Fprintf(tw, "Anterior\t%s\n", models.FormatValue(v.PreviousValue))
	fmt.Fprintf(tw, "Leitura\t%s\n", models.FormatValue(v.Value))
	fmt.Fprintf(tw, "Data\t%s\n", v.Created)
	_ = tw.Flush()
}
