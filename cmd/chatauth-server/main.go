package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-chatauth"
	"github.com/goliatone/go-chatauth/config"
	"github.com/goliatone/go-chatauth/middleware/chatware"
	"github.com/goliatone/go-chatauth/middleware/jwtware"
	"github.com/goliatone/go-chatauth/repository"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config       *gconfig.Container[*config.BaseConfig]
	bunDB        *bun.DB
	activity     *repository.ActivityStore
	activitySink *chatauth.AsyncActivitySink
	sessions     *chatauth.SessionService
	issuer       *chatauth.TokenIssuer
	verifier     *chatauth.TokenVerifier
	srv          router.Server[*fiber.App]
	logger       *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) SetDB(db *bun.DB) {
	a.bunDB = db
}

func (a *App) SetLogger(lgr *glog.BaseLogger) *App {
	a.logger = lgr
	return a
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) SetHTTPServer(srv router.Server[*fiber.App]) {
	a.srv = srv
}

func main() {

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("app"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(redacted(cfg.Raw())))
	fmt.Println("============")

	app := &App{
		config: cfg,
	}
	app.SetLogger(lgr)

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithChatAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	ChatRoutes(app)

	app.srv.Serve(app.Config().GetServer().GetAddress())

	WaitExitSignal()

	app.activitySink.Close()
}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*repository.ActivityRecord)(nil))

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))
	migrationsFS, err := fs.Sub(repository.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		fmt.Printf("report: %s\n", report.String())
	}

	app.SetDB(client.DB())

	store := repository.NewActivityStore(app.bunDB)
	if err := store.Validate(); err != nil {
		return err
	}

	app.activity = store
	app.activitySink = chatauth.NewAsyncActivitySink(store,
		chatauth.WithActivityFilter(chatauth.SkipMalformedRejections),
		chatauth.WithActivityLogger(app.GetLogger("activity")),
	)

	return nil
}

// WithChatAuth builds the two credentials: the provider session that guards
// the token endpoint and the chat token that guards the chat API.
func WithChatAuth(ctx context.Context, app *App) error {
	tokenCfg := app.Config().GetChatToken()
	sessionCfg := app.Config().GetSession()

	sessionOpts := []chatauth.SessionOption{
		chatauth.WithSessionIssuer(sessionCfg.GetIssuer()),
		chatauth.WithSessionAudience(sessionCfg.GetAudience()...),
		chatauth.WithSessionTTL(sessionCfg.GetTTL()),
		chatauth.WithSessionLogger(app.GetLogger("auth:session")),
	}
	if urls := sessionCfg.GetJWKSURLs(); len(urls) > 0 {
		sessionOpts = append(sessionOpts, chatauth.WithSessionJWKS(urls...))
	}

	sessions, err := chatauth.NewSessionService([]byte(sessionCfg.GetSigningKey()), sessionOpts...)
	if err != nil {
		return err
	}

	issuer, err := chatauth.NewTokenIssuer(tokenCfg.GetSecret(),
		chatauth.WithIssuerLogger(app.GetLogger("auth:issuer")),
		chatauth.WithIssuerActivitySink(app.activitySink),
	)
	if err != nil {
		return err
	}

	verifierOpts := []chatauth.VerifierOption{
		chatauth.WithVerifierLogger(app.GetLogger("auth:verifier")),
		chatauth.WithVerifierActivitySink(app.activitySink),
		chatauth.WithFreshnessWindow(tokenCfg.GetWindow()),
	}
	if skew := tokenCfg.GetMaxClockSkew(); skew >= 0 {
		verifierOpts = append(verifierOpts, chatauth.WithMaxClockSkew(skew))
	}

	verifier, err := chatauth.NewTokenVerifier(tokenCfg.GetSecret(), verifierOpts...)
	if err != nil {
		return err
	}

	app.sessions = sessions
	app.issuer = issuer
	app.verifier = verifier

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.SetHTTPServer(srv)

	return nil
}

func ChatRoutes(app *App) {
	r := app.srv.Router()

	sessionCfg := app.Config().GetSession()
	tokenCfg := app.Config().GetChatToken()
	responder := chatauth.NewErrorResponder(app.GetLogger("auth:http"))

	sessionGuard := jwtware.New(jwtware.Config{
		SessionValidator: app.sessions,
		ContextKey:       sessionCfg.GetContextKey(),
		TokenLookup:      sessionCfg.GetTokenLookup(),
		AuthScheme:       sessionCfg.GetAuthScheme(),
		RejectAnonymous:  !sessionCfg.GetAllowAnonymous(),
		ContextEnricher:  jwtware.ContextEnricher,
		ErrorHandler:     responder.Handle,
		Logger:           app.GetLogger("auth:jwt"),
	})

	chatCfg := chatware.Config{
		Validator:       app.verifier,
		ContextKey:      tokenCfg.GetContextKey(),
		TokenLookup:     tokenCfg.GetTokenLookup(),
		AuthScheme:      tokenCfg.GetAuthScheme(),
		ContextEnricher: chatware.ContextEnricher,
		ErrorHandler:    responder.Handle,
		Logger:          app.GetLogger("auth:chat"),
	}
	chatGuard := chatware.New(chatCfg)

	accountCfg := chatCfg
	accountCfg.RequireRealIdentity = true
	accountGuard := chatware.New(accountCfg)

	chatauth.RegisterTokenRoutes(r, []router.MiddlewareFunc{sessionGuard},
		chatauth.WithTokenIssuer(app.issuer),
		chatauth.WithTokenRoute(app.Config().GetServer().GetTokenRoute()),
		chatauth.WithSessionContextKey(sessionCfg.GetContextKey()),
		chatauth.WithControllerLogger(app.GetLogger("auth:ctrl")),
		chatauth.WithControllerErrorHandler(responder.Handle),
	)

	h := &ChatHandlers{
		ContextKey: tokenCfg.GetContextKey(),
		Activity:   app.activity,
		Sessions:   app.sessions,
		Errors:     responder,
		Logger:     app.GetLogger("chat"),
	}

	r.Post("/api/chat/messages", h.PostMessage, chatGuard).SetName("chat.messages.post")
	r.Get("/api/chat/activity", h.ListActivity, accountGuard).SetName("chat.activity.index")

	if app.Config().GetServer().GetDevSessionEnabled() {
		app.GetLogger("app").Warn("development session endpoint enabled")
		r.Post("/api/session/anonymous", h.AnonymousSession).SetName("session.anonymous.post")
	}
}

// redacted hides secrets from the startup config dump.
func redacted(cfg *config.BaseConfig) config.BaseConfig {
	out := *cfg
	if out.ChatToken.Secret != "" {
		out.ChatToken.Secret = "***"
	}
	if out.Session.SigningKey != "" {
		out.Session.SigningKey = "***"
	}
	return out
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
