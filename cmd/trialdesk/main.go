// Command trialdesk is a terminal front end over the participant sync layer.
// It signs in against the participants API, keeps the local store in step with
// the remote, and drives record edits through the same guarded session the
// interactive views use.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"trialdesk/internal/auth"
	"trialdesk/internal/participant/models"
	"trialdesk/internal/participant/repository"
	"trialdesk/internal/participant/session"
	"trialdesk/internal/participant/store"
	"trialdesk/internal/platform/config"
	"trialdesk/internal/platform/httpclient"
	"trialdesk/internal/platform/logger"
)

const usage = `usage: trialdesk <command> [flags]

commands:
  login     -email -password            obtain a bearer token (print it)
  register  -email -password [-name]    create an account and print a token
  list                                  print the participant roster
  metrics                               print the enrollment summary
  show      -id                         print one participant
  create    -subject -group -date -age -gender [-status]
  update    -id [field flags]           edit a record through a guarded session
  delete    -id                         delete a record

Commands other than login/register read the token from TRIALDESK_TOKEN.`

func main() {
	log := logger.New()
	if err := run(log, os.Args[1:]); err != nil {
		log.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type app struct {
	session *auth.Session
	authc   *auth.Client
	store   *store.Store
	logger  *slog.Logger
}

func run(log *slog.Logger, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	cfg := config.FromEnv()
	client := httpclient.New(cfg.HTTPTimeout)
	sess := auth.NewSession()

	authc, err := auth.NewClient(client, cfg.APIURL, auth.WithLogger(log))
	if err != nil {
		return err
	}

	repo, err := repository.NewAPI(client, cfg.APIURL, sess,
		repository.WithLogger(log),
		repository.WithUnauthorizedHook(sess.Clear),
	)
	if err != nil {
		return err
	}

	st, err := store.New(repo, sess, store.WithLogger(log))
	if err != nil {
		return err
	}

	if token := os.Getenv("TRIALDESK_TOKEN"); token != "" {
		sess.SetAuth(token, auth.User{})
	}

	a := &app{session: sess, authc: authc, store: st, logger: log}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	command, rest := args[0], args[1:]
	switch command {
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "list":
		return a.list(ctx)
	case "metrics":
		return a.metrics(ctx)
	case "show":
		return a.show(ctx, rest)
	case "create":
		return a.create(ctx, rest)
	case "update":
		return a.update(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token, err := a.authc.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Println(token.AccessToken)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	name := fs.String("name", "", "full name (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	token, err := a.authc.Register(ctx, *email, *password, *name)
	if err != nil {
		return err
	}
	fmt.Println(token.AccessToken)
	return nil
}

func (a *app) list(ctx context.Context) error {
	if err := a.store.LoadAll(ctx); err != nil {
		return err
	}

	fmt.Printf("%-4s %-12s %-10s %-12s %-10s %3s %-6s\n",
		"ID", "SUBJECT", "GROUP", "ENROLLED", "STATUS", "AGE", "GENDER")
	for _, p := range a.store.Participants() {
		fmt.Printf("%-4d %-12s %-10s %-12s %-10s %3d %-6s\n",
			p.ID, p.SubjectID, p.StudyGroup, p.EnrollmentDate, p.Status, p.Age, p.Gender)
	}
	return nil
}

func (a *app) metrics(ctx context.Context) error {
	if err := a.store.LoadAll(ctx); err != nil {
		return err
	}

	m := a.store.Metrics()
	if m == nil {
		return fmt.Errorf("no metrics available")
	}
	fmt.Printf("total:     %d\n", m.Total)
	fmt.Printf("active:    %d\n", m.ByStatus.Active)
	fmt.Printf("completed: %d\n", m.ByStatus.Completed)
	fmt.Printf("withdrawn: %d\n", m.ByStatus.Withdrawn)
	fmt.Printf("treatment: %d\n", m.ByGroup.Treatment)
	fmt.Printf("control:   %d\n", m.ByGroup.Control)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	id := fs.Int("id", 0, "participant record id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := a.store.GetOne(ctx, *id)
	if p == nil {
		return fmt.Errorf("%s", a.storeError("Failed to fetch participant"))
	}
	printParticipant(*p)
	return nil
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	draft := draftFlags(fs, models.Draft{Status: models.StatusActive})
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := a.store.Create(ctx, *draft)
	if p == nil {
		return fmt.Errorf("%s", a.storeError("Failed to create participant"))
	}
	printParticipant(*p)
	return nil
}

// update runs the full guarded edit flow: snapshot, apply only the flags the
// user passed, save. A clean save (no flags changed anything) is still a save.
func (a *app) update(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	id := fs.Int("id", 0, "participant record id")
	changes := draftFlags(fs, models.Draft{Age: -1})
	if err := fs.Parse(args); err != nil {
		return err
	}

	current := a.store.GetOne(ctx, *id)
	if current == nil {
		return fmt.Errorf("%s", a.storeError("Failed to fetch participant"))
	}

	edit, err := session.New(*current, a.store, session.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer edit.Close()

	edit.StartEdit()
	draft := edit.Draft()
	applyChanges(&draft, *changes)
	edit.SetDraft(draft)

	if !edit.Save(ctx) {
		return fmt.Errorf("%s", edit.SaveError())
	}
	printParticipant(edit.Participant())
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.Int("id", 0, "participant record id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	current := a.store.GetOne(ctx, *id)
	if current == nil {
		return fmt.Errorf("%s", a.storeError("Failed to fetch participant"))
	}

	edit, err := session.New(*current, a.store, session.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer edit.Close()

	edit.RequestDelete()
	if !edit.ConfirmDelete(ctx) {
		return fmt.Errorf("%s", edit.SaveError())
	}
	fmt.Printf("deleted participant %d\n", *id)
	return nil
}

func (a *app) storeError(fallback string) string {
	if msg := a.store.Error(); msg != "" {
		return msg
	}
	return fallback
}

func draftFlags(fs *flag.FlagSet, defaults models.Draft) *models.Draft {
	d := &defaults
	fs.StringVar(&d.SubjectID, "subject", d.SubjectID, "subject identifier")
	fs.Func("group", "study group (treatment|control)", func(v string) error {
		d.StudyGroup = models.StudyGroup(v)
		return nil
	})
	fs.StringVar(&d.EnrollmentDate, "date", d.EnrollmentDate, "enrollment date")
	fs.Func("status", "status (active|completed|withdrawn)", func(v string) error {
		d.Status = models.Status(v)
		return nil
	})
	fs.IntVar(&d.Age, "age", d.Age, "age in years")
	fs.Func("gender", "gender (M|F|Other)", func(v string) error {
		d.Gender = models.Gender(v)
		return nil
	})
	return d
}

// applyChanges overlays only the fields the user actually set. The zero values
// in changes mean "leave alone"; age uses -1 for that since 0 is a real value
// server-side.
func applyChanges(draft *models.Draft, changes models.Draft) {
	if changes.SubjectID != "" {
		draft.SubjectID = changes.SubjectID
	}
	if changes.StudyGroup != "" {
		draft.StudyGroup = changes.StudyGroup
	}
	if changes.EnrollmentDate != "" {
		draft.EnrollmentDate = changes.EnrollmentDate
	}
	if changes.Status != "" {
		draft.Status = changes.Status
	}
	if changes.Age >= 0 {
		draft.Age = changes.Age
	}
	if changes.Gender != "" {
		draft.Gender = changes.Gender
	}
}

func printParticipant(p models.Participant) {
	fmt.Printf("id:              %d\n", p.ID)
	fmt.Printf("participant_id:  %s\n", p.ParticipantID)
	fmt.Printf("subject_id:      %s\n", p.SubjectID)
	fmt.Printf("study_group:     %s\n", p.StudyGroup)
	fmt.Printf("enrollment_date: %s\n", p.EnrollmentDate)
	fmt.Printf("status:          %s\n", p.Status)
	fmt.Printf("age:             %d\n", p.Age)
	fmt.Printf("gender:          %s\n", p.Gender)
}
