// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/taibuivan/legacyvault/internal/admin/email"
	"github.com/taibuivan/legacyvault/internal/platform/apperr"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/routes"
	"github.com/taibuivan/legacyvault/internal/users/auth"
	"github.com/taibuivan/legacyvault/internal/users/session"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// # Command Table

type command struct {
	summary string
	run     func(app *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":           {"Sign in with email and password", (*app).login},
	"admin-login":     {"Sign in to the admin console", (*app).adminLogin},
	"register":        {"Create an account and sign in", (*app).register},
	"logout":          {"Sign out and forget the stored session", (*app).logout},
	"refresh":         {"Renew the stored credentials", (*app).refresh},
	"whoami":          {"Show the signed-in user, as known by the server", (*app).whoami},
	"status":          {"Show the local session state", (*app).status},
	"open":            {"Check whether a location may be opened", (*app).open},
	"forgot-password": {"Request a password reset link", (*app).forgotPassword},
	"reset-password":  {"Set a new password with a reset token", (*app).resetPassword},
	"email-settings":  {"Manage SMTP settings (get|save|test|send-test)", (*app).emailSettings},
}

// errUsage marks a command line the flag package already reported.
var errUsage = errors.New("usage")

func isUsage(err error) bool { return errors.Is(err, errUsage) }

func isHelp(arg string) bool {
	return arg == "help" || arg == "-h" || arg == "--help"
}

func usage(out io.Writer) {
	fmt.Fprintf(out, "%s %s\n\nUsage: vault <command> [flags]\n\nCommands:\n", constants.AppName, constants.AppVersion)

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(out, "  %-16s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out, "\nRun `vault <command> -h` for the flags of a command.")
}

// newFlags returns a flag set that reports errors to the command output.
func (app *app) newFlags(name string) *flag.FlagSet {
	flags := flag.NewFlagSet("vault "+name, flag.ContinueOnError)
	flags.SetOutput(app.out)
	return flags
}

func (app *app) parse(flags *flag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

// prompt reads one line from the input when value is empty.
func (app *app) prompt(label, value string) string {
	if value != "" {
		return value
	}
	fmt.Fprintf(app.out, "%s: ", label)
	line, _ := app.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

// # Session Commands

func (app *app) login(ctx context.Context, args []string) error {
	flags := app.newFlags("login")
	emailAddress := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password (prompted when empty)")
	remember := flags.Bool("remember", false, "remember this device")
	if err := app.parse(flags, args); err != nil {
		return err
	}

	input, err := auth.LoginForm{
		Email:      *emailAddress,
		Password:   app.prompt("Password", *password),
		RememberMe: *remember,
	}.Validate()
	if err != nil {
		return err
	}

	payload, err := app.controller.Login(ctx, input)
	if err != nil {
		return err
	}
	app.welcome(payload.User)
	return nil
}

func (app *app) adminLogin(ctx context.Context, args []string) error {
	flags := app.newFlags("admin-login")
	emailAddress := flags.String("email", "", "admin email")
	password := flags.String("password", "", "admin password (prompted when empty)")
	if err := app.parse(flags, args); err != nil {
		return err
	}

	input, err := auth.LoginForm{
		Email:    *emailAddress,
		Password: app.prompt("Password", *password),
	}.Validate()
	if err != nil {
		return err
	}

	payload, err := app.controller.AdminLogin(ctx, input.Email, input.Password)
	if err != nil {
		return err
	}
	app.welcome(payload.User)
	return nil
}

func (app *app) register(ctx context.Context, args []string) error {
	flags := app.newFlags("register")
	emailAddress := flags.String("email", "", "account email")
	username := flags.String("username", "", "display name (3-100 letters, digits, _ or -)")
	password := flags.String("password", "", "password (prompted when empty)")
	confirm := flags.String("confirm", "", "password confirmation (prompted when empty)")
	if err := app.parse(flags, args); err != nil {
		return err
	}

	form := auth.RegisterForm{
		Email:    *emailAddress,
		Username: *username,
		Password: app.prompt("Password", *password),
	}
	form.ConfirmPassword = app.prompt("Confirm password", *confirm)

	strength, _ := auth.PasswordStrength(form.Password)
	fmt.Fprintf(app.out, "Password strength: %s\n", strength)

	input, err := form.Validate()
	if err != nil {
		return err
	}

	payload, err := app.controller.Register(ctx, input)
	if err != nil {
		return err
	}
	app.welcome(payload.User)
	return nil
}

func (app *app) welcome(user auth.Identity) {
	fmt.Fprintf(app.out, "Signed in as %s <%s> (%s).\n", user.Username, user.Email, user.Role)
	fmt.Fprintf(app.out, "Continue at %s\n", routes.DashboardFor(user.Role))
}

func (app *app) logout(ctx context.Context, args []string) error {
	if err := app.parse(app.newFlags("logout"), args); err != nil {
		return err
	}

	app.controller.Logout(ctx)
	fmt.Fprintln(app.out, "Signed out.")
	return nil
}

func (app *app) refresh(ctx context.Context, args []string) error {
	if err := app.parse(app.newFlags("refresh"), args); err != nil {
		return err
	}

	if err := app.controller.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "Credentials renewed.")
	app.printExpiry(ctx)
	return nil
}

func (app *app) whoami(ctx context.Context, args []string) error {
	if err := app.parse(app.newFlags("whoami"), args); err != nil {
		return err
	}

	if !app.controller.Snapshot().Authenticated() {
		return apperr.Unauthorized("Not signed in. Run `vault login` first.")
	}

	identity, err := app.controller.SyncProfile(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.out, "ID:        %s\n", identity.ID)
	fmt.Fprintf(app.out, "Username:  %s\n", identity.Username)
	fmt.Fprintf(app.out, "Email:     %s\n", identity.Email)
	fmt.Fprintf(app.out, "Role:      %s\n", identity.Role)
	fmt.Fprintf(app.out, "Verified:  %t\n", identity.EmailVerified)
	fmt.Fprintf(app.out, "MFA:       %t\n", identity.MFAEnabled)
	return nil
}

func (app *app) status(ctx context.Context, args []string) error {
	if err := app.parse(app.newFlags("status"), args); err != nil {
		return err
	}

	state := app.controller.Snapshot()
	fmt.Fprintf(app.out, "Session:   %s\n", state.Phase)
	if state.Phase != session.PhaseAuthenticated {
		return nil
	}

	fmt.Fprintf(app.out, "User:      %s <%s>\n", state.Identity.Username, state.Identity.Email)
	fmt.Fprintf(app.out, "Role:      %s\n", state.Role())
	app.printExpiry(ctx)
	return nil
}

func (app *app) printExpiry(ctx context.Context) {
	expiresAt, found := app.auth.AccessCredentialExpiry(ctx)
	if !found {
		return
	}
	fmt.Fprintf(app.out, "Expires:   %s (in %s)\n",
		expiresAt.Local().Format(time.RFC3339),
		time.Until(expiresAt).Round(time.Second))
}

func (app *app) open(ctx context.Context, args []string) error {
	flags := app.newFlags("open")
	if err := app.parse(flags, args); err != nil {
		return err
	}
	if flags.NArg() != 1 {
		fmt.Fprintln(app.out, "Usage: vault open <path>")
		return errUsage
	}

	decision := routes.Resolve(flags.Arg(0), app.controller.Snapshot())
	switch decision.Action {
	case routes.ActionRender:
		fmt.Fprintf(app.out, "render %s\n", decision.Target)
	case routes.ActionRedirect:
		if decision.From != "" {
			fmt.Fprintf(app.out, "redirect %s (from %s)\n", decision.Target, decision.From)
		} else {
			fmt.Fprintf(app.out, "redirect %s\n", decision.Target)
		}
	default:
		fmt.Fprintln(app.out, string(decision.Action))
	}
	return nil
}

// # Password Recovery

func (app *app) forgotPassword(ctx context.Context, args []string) error {
	flags := app.newFlags("forgot-password")
	emailAddress := flags.String("email", "", "account email")
	if err := app.parse(flags, args); err != nil {
		return err
	}

	address, err := auth.ForgotPasswordForm{Email: *emailAddress}.Validate()
	if err != nil {
		return err
	}

	message, err := app.auth.ForgotPassword(ctx, address)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, message)
	return nil
}

func (app *app) resetPassword(ctx context.Context, args []string) error {
	flags := app.newFlags("reset-password")
	token := flags.String("token", "", "reset token from the email")
	password := flags.String("password", "", "new password (prompted when empty)")
	confirm := flags.String("confirm", "", "new password confirmation (prompted when empty)")
	if err := app.parse(flags, args); err != nil {
		return err
	}

	form := auth.ResetPasswordForm{
		Token:    strings.TrimSpace(*token),
		Password: app.prompt("New password", *password),
	}
	form.ConfirmPassword = app.prompt("Confirm password", *confirm)

	if err := form.Validate(); err != nil {
		return err
	}

	message, err := app.auth.ResetPassword(ctx, form.Token, form.Password)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, message)
	fmt.Fprintf(app.out, "Continue at %s\n", constants.RouteLogin)
	return nil
}

// # Admin Commands

func (app *app) emailSettings(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(app.out, "Usage: vault email-settings get|save|test|send-test [flags]")
		return errUsage
	}

	if decision := routes.Resolve(constants.RouteAdminEmailSettings, app.controller.Snapshot()); decision.Action != routes.ActionRender {
		if decision.From != "" {
			return apperr.Unauthorized("Admin sign-in required. Run `vault admin-login` first.")
		}
		return apperr.Forbidden("Admin access required")
	}

	switch args[0] {
	case "get":
		return app.emailGet(ctx, args[1:])
	case "save":
		return app.emailSave(ctx, args[1:])
	case "test":
		return app.emailTest(ctx, args[1:])
	case "send-test":
		return app.emailSendTest(ctx, args[1:])
	default:
		fmt.Fprintf(app.out, "Unknown email-settings action %q.\n", args[0])
		return errUsage
	}
}

func (app *app) emailGet(ctx context.Context, args []string) error {
	if err := app.parse(app.newFlags("email-settings get"), args); err != nil {
		return err
	}

	settings, configured, err := app.email.Get(ctx)
	if err != nil {
		return err
	}
	if !configured {
		fmt.Fprintln(app.out, "Email settings are not configured.")
	}

	fmt.Fprintf(app.out, "SMTP host:   %s\n", settings.SMTPHost)
	fmt.Fprintf(app.out, "SMTP port:   %d\n", settings.SMTPPort)
	fmt.Fprintf(app.out, "Secure:      %t\n", settings.SMTPSecure)
	fmt.Fprintf(app.out, "SMTP user:   %s\n", settings.SMTPUser)
	fmt.Fprintf(app.out, "From:        %s <%s>\n", settings.FromName, settings.FromEmail)
	return nil
}

func (app *app) emailSave(ctx context.Context, args []string) error {
	flags := app.newFlags("email-settings save")
	host := flags.String("host", "", "SMTP host")
	port := flags.Int("port", email.DefaultSMTPPort, "SMTP port")
	secure := flags.Bool("secure", false, "use implicit TLS")
	user := flags.String("user", "", "SMTP user")
	password := flags.String("password", "", "SMTP password (empty keeps the stored one)")
	fromName := flags.String("from-name", "", "sender display name")
	fromEmail := flags.String("from-email", "", "sender address")
	if err := app.parse(flags, args); err != nil {
		return err
	}

	message, err := app.email.Save(ctx, email.Settings{
		SMTPHost:     strings.TrimSpace(*host),
		SMTPPort:     *port,
		SMTPSecure:   *secure,
		SMTPUser:     strings.TrimSpace(*user),
		SMTPPassword: *password,
		FromName:     strings.TrimSpace(*fromName),
		FromEmail:    *fromEmail,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, message)
	return nil
}

func (app *app) emailTest(ctx context.Context, args []string) error {
	if err := app.parse(app.newFlags("email-settings test"), args); err != nil {
		return err
	}

	message, err := app.email.TestConnection(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, message)
	return nil
}

func (app *app) emailSendTest(ctx context.Context, args []string) error {
	flags := app.newFlags("email-settings send-test")
	recipient := flags.String("to", "", "recipient address")
	if err := app.parse(flags, args); err != nil {
		return err
	}

	message, err := app.email.SendTest(ctx, *recipient)
	if err != nil {
		return err
	}
	fmt.Fprintln(app.out, message)
	return nil
}
