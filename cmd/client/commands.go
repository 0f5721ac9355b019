package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingua-api/internal/api"
	"github.com/phrazzld/lingua-api/internal/client"
	"github.com/phrazzld/lingua-api/internal/client/session"
	"github.com/phrazzld/lingua-api/internal/domain"
	"github.com/phrazzld/lingua-api/internal/domain/exam"
)

const usage = `usage: lingua <command> [flags]

commands:
  register   create an account (-phone, -first, -last)
  login      log in (-phone)
  logout     forget the saved login
  me         show streak, words, coins and premium
  learn      record one learned word
  coins      record coins earned by an exercise (-amount)
  premium    activate premium (-months)
  vouchers   list vouchers
  buy        buy a voucher (-id)
  history    list purchases
  exam       take the scheduled exam (press Enter to submit)
`

// errUsage is returned for an unknown or missing command.
var errUsage = errors.New("invalid command")

type app struct {
	sess *session.Session
	in   *bufio.Reader
	out  io.Writer
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	if cmd != "register" && cmd != "login" {
		if _, err := a.sess.Restore(ctx); err != nil {
			return err
		}
	}

	var err error
	switch cmd {
	case "register":
		err = a.register(ctx, rest)
	case "login":
		err = a.login(ctx, rest)
	case "logout":
		err = a.logout(ctx)
	case "me":
		err = a.me(ctx)
	case "learn":
		err = a.learn(ctx)
	case "coins":
		err = a.coins(ctx, rest)
	case "premium":
		err = a.premium(ctx, rest)
	case "vouchers":
		err = a.vouchers(ctx)
	case "buy":
		err = a.buy(ctx, rest)
	case "history":
		err = a.history(ctx)
	case "exam":
		err = a.exam(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: %q", errUsage, cmd)
	}
	return explain(err)
}

// explain turns well-known failures into messages for the terminal.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNotLoggedIn):
		return errors.New("not logged in, run: lingua login")
	case errors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("session rejected, log in again: %w", err)
	case errors.Is(err, domain.ErrInsufficientFunds):
		return errors.New("not enough coins for this voucher")
	case errors.Is(err, client.ErrTransient):
		return fmt.Errorf("server unavailable, try again later: %w", err)
	default:
		return err
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(a.out)
	phone := fs.String("phone", "", "phone number in E.164 form")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *phone == "" {
		if *phone, err = promptLine(a.in, a.out, "Phone"); err != nil {
			return err
		}
	}
	if *first == "" {
		if *first, err = promptLine(a.in, a.out, "First name"); err != nil {
			return err
		}
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.sess.Register(ctx, api.RegisterRequest{
		Phone:     *phone,
		Password:  password,
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", user.FirstName)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.out)
	phone := fs.String("phone", "", "phone number in E.164 form")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *phone == "" {
		if *phone, err = promptLine(a.in, a.out, "Phone"); err != nil {
			return err
		}
	}
	password, err := promptPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.sess.Login(ctx, *phone, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Hello, %s! Streak: %d day(s)\n", user.FirstName, user.Streak)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.sess.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) me(ctx context.Context) error {
	user, err := a.sess.Refresh(ctx)
	if errors.Is(err, client.ErrTransient) {
		// Offline: show what we last saw.
		if cached, cerr := a.sess.User(); cerr == nil {
			fmt.Fprintln(a.out, "(offline, showing saved profile)")
			user, err = cached, nil
		}
	}
	if err != nil {
		return err
	}
	printUser(a.out, user)
	return nil
}

func printUser(w io.Writer, u *domain.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name\t%s %s\n", u.FirstName, u.LastName)
	fmt.Fprintf(tw, "Phone\t%s\n", u.Phone)
	fmt.Fprintf(tw, "Streak\t%d\n", u.Streak)
	fmt.Fprintf(tw, "Learned words\t%d\n", u.LearnedWords)
	fmt.Fprintf(tw, "Coins\t%d\n", u.Coins)
	premium := "no"
	if u.IsPremium && u.PremiumUntil != nil {
		premium = "until " + u.PremiumUntil.Local().Format("2006-01-02")
	}
	fmt.Fprintf(tw, "Premium\t%s\n", premium)
	_ = tw.Flush()
}

func (a *app) learn(ctx context.Context) error {
	count, err := a.sess.LearnWord(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Learned words: %d\n", count)
	return nil
}

func (a *app) coins(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("coins", flag.ContinueOnError)
	fs.SetOutput(a.out)
	amount := fs.Int("amount", 10, "coins earned")
	if err := fs.Parse(args); err != nil {
		return err
	}

	balance, err := a.sess.AwardCoins(ctx, *amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Coins: %d\n", balance)
	return nil
}

func (a *app) premium(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("premium", flag.ContinueOnError)
	fs.SetOutput(a.out)
	months := fs.Int("months", 1, "months of premium")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.sess.GrantPremium(ctx, *months)
	if err != nil {
		return err
	}
	printUser(a.out, user)
	return nil
}

func (a *app) vouchers(ctx context.Context) error {
	vouchers, err := a.sess.Vouchers(ctx)
	if err != nil {
		return err
	}
	if len(vouchers) == 0 {
		fmt.Fprintln(a.out, "No vouchers available.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tDISCOUNT\tCOST")
	for _, v := range vouchers {
		fmt.Fprintf(tw, "%s\t%s\t%d%%\t%d\n", v.ID, v.Title, v.DiscountPercent, v.CostCoins)
	}
	return tw.Flush()
}

func (a *app) buy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("buy", flag.ContinueOnError)
	fs.SetOutput(a.out)
	rawID := fs.String("id", "", "voucher ID")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := uuid.Parse(strings.TrimSpace(*rawID))
	if err != nil {
		return fmt.Errorf("invalid voucher ID %q", *rawID)
	}

	receipt, err := a.sess.Buy(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Bought %q. Coins left: %d\n", receipt.Voucher.Title, receipt.Balance)
	return nil
}

func (a *app) history(ctx context.Context) error {
	records, err := a.sess.History(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.out, "No purchases yet.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tVOUCHER")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\n", r.PurchasedAt.Local().Format(time.DateTime), r.VoucherID)
	}
	return tw.Flush()
}

func (a *app) exam(ctx context.Context) error {
	ex, err := a.sess.PrepareExam(ctx)
	if err != nil {
		return err
	}
	if ex.Session.State() == exam.StateErrored {
		return fmt.Errorf("exam unavailable: %w", ex.Session.Err())
	}

	fmt.Fprintf(a.out, "%s: %d question(s)\n", ex.Session.View(ex.Clock.Now()).ExamName, len(ex.Session.Questions()))

	// Enter submits an exam in progress.
	go func() {
		for {
			if _, err := a.in.ReadString('\n'); err != nil {
				return
			}
			if ex.Session.Complete() == nil {
				return
			}
		}
	}()

	var last exam.State
	final := ex.RunWithTicker(ctx, func(v exam.View) {
		if v.State != last {
			last = v.State
			if v.State == exam.StateInProgress {
				fmt.Fprintln(a.out, "\nThe exam has started.")
				for _, q := range ex.Session.Questions() {
					fmt.Fprintf(a.out, "%d. %s\n", q.Number, q.Prompt)
				}
			}
		}
		switch v.State {
		case exam.StateScheduled:
			fmt.Fprintf(a.out, "\rStarts in %s", v.Countdown)
		case exam.StateInProgress:
			fmt.Fprintf(a.out, "\rTime left %s", exam.FormatCountdown(time.Duration(v.RemainingSeconds)*time.Second))
		}
	})

	switch final {
	case exam.StateFinished:
		fmt.Fprintln(a.out, "\nThe exam is over.")
	default:
		fmt.Fprintln(a.out, "\nExam interrupted.")
	}
	return nil
}
