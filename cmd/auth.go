package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/session"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges credentials for a session and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	account := cmd.String("account")
	password := cmd.String("password")
	if password == "" {
		r.writePlain("Password: ")
		line, err := bufio.NewReader(r.input).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("%w: password", shared.ErrMissingArgument)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	r.logger.Info("logging in", "account", account)
	res, err := r.client.Login(ctx, account, password)
	if err != nil {
		return err
	}

	if r.sessions == nil {
		r.logger.Warn("no local database; the session lasts for this command only. Run `folio setup` to persist it")
	}
	if err := r.store.Login(ctx, session.New(res.User, res.Token)); err != nil {
		return err
	}
	return r.writePlain("✓ Logged in as %s\n", res.User.DisplayName())
}

// AuthLogout forgets the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.store.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthRegister creates a reader account.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	req := services.RegisterRequest{
		Email:    cmd.String("email"),
		Username: cmd.String("username"),
		Password: cmd.String("password"),
	}
	if err := r.client.Register(ctx, req); err != nil {
		return err
	}
	r.writePlain("✓ Account created for %s\n", req.Username)
	return r.writePlain("Run 'folio auth login --account %s' to sign in\n", req.Email)
}

// AuthWhoami prints the logged-in user.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	sess := r.store.Current()
	u := sess.User
	r.writePlainHeader(u.DisplayName())
	r.writePlain("ID:       %s\n", u.ID)
	r.writePlain("Username: %s\n", u.Username)
	r.writePlain("Email:    %s\n", u.Email)
	r.writePlain("Role:     %s\n", u.Role)
	if u.PenName != "" {
		r.writePlain("Pen name: %s\n", u.PenName)
	}
	if sess.Token != nil && !sess.Token.Expiry.IsZero() {
		r.writePlain("Session expires %s\n", sess.Token.Expiry.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// AuthPenName sets the user's pen name, which makes them an author, and updates the stored session.
func (r *Runner) AuthPenName(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireClient(); err != nil {
		return err
	}
	name := cmd.StringArg("name")
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: pen name", shared.ErrMissingArgument)
	}

	penName, err := r.client.UpdatePenName(ctx, services.PenNameRequest{PenName: name, UserID: r.store.UserID()})
	if err != nil {
		return err
	}
	r.store.Update(func(u *models.User) {
		u.PenName = penName
		u.Role = models.RoleAuthor
	})
	if r.sessions != nil {
		if err := r.sessions.UpdateAuthor(ctx, penName, models.RoleAuthor); err != nil {
			r.logger.Warn("pen name saved remotely but not locally", "error", err)
		}
	}
	return r.writePlain("✓ Pen name set to %s\n", penName)
}
