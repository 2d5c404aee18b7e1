package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/ministrylearn/ministrylearn/pkg/authstate"
	"github.com/ministrylearn/ministrylearn/pkg/jwtx"
	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
)

var (
	ErrUsage       = errors.New("usage")
	ErrNotSignedIn = errors.New("not signed in; run `lmsctl login`")
	ErrForbidden   = errors.New("your roles do not allow this")
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) error
}

func (app *Application) commands() []command {
	return []command{
		{"login", "sign in and store the session", app.cmdLogin},
		{"register", "create an account and sign in", app.cmdRegister},
		{"logout", "forget the stored session", app.cmdLogout},
		{"whoami", "show the signed-in user", app.cmdWhoami},
		{"status", "inspect the stored tokens without calling the API", app.cmdStatus},
		{"courses", "list|show|enroll|mine|pending|approve|reject", app.cmdCourses},
		{"enrollments", "list your enrollments", app.cmdEnrollments},
		{"certifications", "list your certifications", app.cmdCertifications},
		{"chat", "ask the learning assistant", app.cmdChat},
		{"version", "print the version", app.cmdVersion},
	}
}

// Run dispatches args[0] to its command.
func (app *Application) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		app.usage(app.out)
		return nil
	}

	for _, c := range app.commands() {
		if c.name == args[0] {
			return c.run(ctx, args[1:])
		}
	}

	app.usage(app.errOut)
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func (app *Application) usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: lmsctl <command> [flags]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range app.commands() {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.summary)
	}
	_ = tw.Flush()
}

func (app *Application) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(app.errOut)
	return fs
}

// prompt reads one line for value when it is empty.
func (app *Application) prompt(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(app.errOut, "%s: ", label)
	line, err := app.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// guard loads the signed-in user and checks it against the route at path.
func (app *Application) guard(ctx context.Context, path string) error {
	app.manager.Init(ctx)
	d := app.manager.Guard(path)
	switch {
	case d.Allowed:
		return nil
	case d.Redirect == authstate.LoginPath:
		return ErrNotSignedIn
	default:
		return fmt.Errorf("%w (%s)", ErrForbidden, path)
	}
}

// ============================================================================
// Session
// ============================================================================

func (app *Application) cmdLogin(ctx context.Context, args []string) error {
	fs := app.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var err error
	if *email, err = app.prompt("Email", *email); err != nil {
		return err
	}
	if *password, err = app.prompt("Password", *password); err != nil {
		return err
	}

	if err := app.manager.Login(ctx, *email, *password); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	roles := app.manager.Roles()
	fmt.Fprintf(app.out, "Signed in as %s (%s)\n", *email, strings.Join(roles, ", "))
	fmt.Fprintf(app.out, "Home: %s\n", authstate.HomeFor(roles))
	return nil
}

func (app *Application) cmdRegister(ctx context.Context, args []string) error {
	fs := app.flags("register")
	var req lmssdk.RegisterRequest
	fs.StringVar(&req.Email, "email", "", "account email")
	fs.StringVar(&req.Username, "username", "", "display name")
	fs.StringVar(&req.Password, "password", "", "account password (prompted when empty)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	var err error
	if req.Email, err = app.prompt("Email", req.Email); err != nil {
		return err
	}
	if req.Username, err = app.prompt("Username", req.Username); err != nil {
		return err
	}
	if req.Password, err = app.prompt("Password", req.Password); err != nil {
		return err
	}

	if err := app.manager.Register(ctx, req); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Fprintf(app.out, "Registered and signed in as %s\n", req.Email)
	return nil
}

func (app *Application) cmdLogout(ctx context.Context, _ []string) error {
	if err := app.manager.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "Signed out")
	return nil
}

func (app *Application) cmdWhoami(ctx context.Context, _ []string) error {
	app.manager.Init(ctx)
	user := app.manager.User()
	if user == nil {
		return ErrNotSignedIn
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", user.ID)
	fmt.Fprintf(tw, "Email\t%s\n", user.Email)
	fmt.Fprintf(tw, "Username\t%s\n", user.Username)
	if user.FullName != "" {
		fmt.Fprintf(tw, "Name\t%s\n", user.FullName)
	}
	if user.Campus != "" {
		fmt.Fprintf(tw, "Campus\t%s\n", user.Campus)
	}
	fmt.Fprintf(tw, "Roles\t%s\n", strings.Join(user.Roles, ", "))
	return tw.Flush()
}

func (app *Application) cmdStatus(ctx context.Context, _ []string) error {
	sess, err := tokenstore.Load(ctx, app.store)
	if err != nil {
		return err
	}
	if sess.Empty() {
		fmt.Fprintln(app.out, "No stored session")
		return nil
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Store\t%s\n", app.cfg.TokenStore)

	switch claims, err := jwtx.Inspect(sess.AccessToken); {
	case sess.AccessToken == "":
		fmt.Fprintln(tw, "Access token\tmissing")
	case err != nil:
		fmt.Fprintln(tw, "Access token\tpresent (not a JWT)")
	default:
		left := claims.ExpiresIn(time.Now())
		state := "valid for " + left.Round(time.Second).String()
		switch {
		case left < 0:
			state = "valid (no expiry)"
		case left == 0:
			state = "expired (will refresh on next call)"
		}
		fmt.Fprintf(tw, "Access token\t%s\n", state)
		fmt.Fprintf(tw, "Subject\t%s\n", claims.Subject)
		if claims.Email != "" {
			fmt.Fprintf(tw, "Email\t%s\n", claims.Email)
		}
		fmt.Fprintf(tw, "Roles\t%s\n", strings.Join(claims.Roles, ", "))
	}

	refresh := "missing"
	if sess.RefreshToken != "" {
		refresh = "present"
	}
	fmt.Fprintf(tw, "Refresh token\t%s\n", refresh)
	return tw.Flush()
}

// ============================================================================
// Catalog
// ============================================================================

func (app *Application) cmdCourses(ctx context.Context, args []string) error {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	switch sub {
	case "list":
		return app.coursesList(ctx, args)
	case "show":
		return app.withID(args, func(id lmssdk.ID) error { return app.coursesShow(ctx, id) })
	case "enroll":
		return app.withID(args, func(id lmssdk.ID) error {
			if err := app.client.Enroll(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Enrolled in course %s\n", id)
			return nil
		})
	case "mine":
		if err := app.guard(ctx, authstate.InstructorPath); err != nil {
			return err
		}
		page, err := app.client.InstructorCourses(ctx)
		if err != nil {
			return err
		}
		return app.printCourses(page.Items)
	case "pending":
		if err := app.guard(ctx, authstate.AdminPath); err != nil {
			return err
		}
		page, err := app.client.PendingCourses(ctx)
		if err != nil {
			return err
		}
		return app.printCourses(page.Items)
	case "approve", "reject":
		return app.withID(args, func(id lmssdk.ID) error {
			if err := app.guard(ctx, authstate.AdminPath); err != nil {
				return err
			}
			if sub == "approve" {
				if err := app.client.ApproveCourse(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(app.out, "Approved course %s\n", id)
				return nil
			}
			if err := app.client.RejectCourse(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Rejected course %s\n", id)
			return nil
		})
	default:
		return fmt.Errorf("%w: unknown courses command %q", ErrUsage, sub)
	}
}

func (app *Application) withID(args []string, fn func(lmssdk.ID) error) error {
	if len(args) != 1 || args[0] == "" {
		return fmt.Errorf("%w: expected exactly one course id", ErrUsage)
	}
	return fn(lmssdk.ID(args[0]))
}

func (app *Application) coursesList(ctx context.Context, args []string) error {
	fs := app.flags("courses list")
	var q lmssdk.CourseQuery
	fs.StringVar(&q.Campus, "campus", "", "filter by campus")
	fs.StringVar(&q.Category, "category", "", "filter by category")
	fs.StringVar(&q.Difficulty, "difficulty", "", "filter by difficulty")
	fs.StringVar(&q.Search, "search", "", "search titles")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	page, err := app.client.ListCourses(ctx, q)
	if err != nil {
		return err
	}
	return app.printCourses(page.Items)
}

func (app *Application) printCourses(courses []lmssdk.Course) error {
	if len(courses) == 0 {
		fmt.Fprintln(app.out, "No courses")
		return nil
	}
	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCAMPUS\tCATEGORY\tDIFFICULTY")
	for _, c := range courses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, c.Campus, c.Category, c.Difficulty)
	}
	return tw.Flush()
}

func (app *Application) coursesShow(ctx context.Context, id lmssdk.ID) error {
	course, err := app.client.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	mods, err := app.client.CourseModules(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "%s (%s)\n", course.Title, course.ID)
	if course.Description != "" {
		fmt.Fprintln(app.out, course.Description)
	}
	for _, m := range mods.Items {
		fmt.Fprintf(app.out, "  - %s\n", m.Title)
	}
	return nil
}

// ============================================================================
// Learning
// ============================================================================

func (app *Application) cmdEnrollments(ctx context.Context, _ []string) error {
	page, err := app.client.ListEnrollments(ctx)
	if err != nil {
		return err
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(app.out, "No enrollments")
		return nil
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOURSE\tSTATUS\tPROGRESS")
	for _, e := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f%%\n", e.ID, e.CourseID, e.Status, e.Progress)
	}
	return tw.Flush()
}

func (app *Application) cmdCertifications(ctx context.Context, _ []string) error {
	page, err := app.client.ListCertifications(ctx)
	if err != nil {
		return err
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(app.out, "No certifications")
		return nil
	}

	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOURSE\tISSUED\tEXPIRES")
	for _, c := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.CourseID, formatDate(c.IssuedAt), formatDate(c.ExpiresAt))
	}
	return tw.Flush()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func (app *Application) cmdChat(ctx context.Context, args []string) error {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		return fmt.Errorf("%w: chat <message>", ErrUsage)
	}

	resp, err := app.client.Chat(ctx, message, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, resp.Response)
	return nil
}

func (app *Application) cmdVersion(_ context.Context, _ []string) error {
	fmt.Fprintln(app.out, figure.NewFigure(serviceName, "cybermedium", true).String())
	fmt.Fprintf(app.out, "%s %s\n", serviceName, BuildVersion)
	return nil
}
