package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Acuveth/life-rank/internal/api"
	"github.com/Acuveth/life-rank/internal/config"
	"github.com/Acuveth/life-rank/internal/googleid"
	"github.com/Acuveth/life-rank/internal/models"
	"github.com/Acuveth/life-rank/internal/session"
	"github.com/Acuveth/life-rank/internal/store"
	"github.com/Acuveth/life-rank/pkg/logger"
	"github.com/Acuveth/life-rank/pkg/metrics"
)

func main() {
	// earliest possible logging setup; re-applied once config is loaded
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	logger.Debugf("config loaded: api=%s backend=%s", cfg.API.BaseURL, cfg.Storage.Backend)

	var st store.Store
	switch cfg.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Host + ":" + cfg.Storage.Redis.Port,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("failed to connect to Redis (%s:%s): %v", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port, err)
		}
		st = store.NewRedisStore(client, "")
		logger.Infof("using Redis session store at %s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port)
	default:
		st = store.NewFileStore(cfg.Storage.Path)
		logger.Debugf("using file session store at %s", cfg.Storage.Path)
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, st)

	var opts []session.Option
	if cfg.Google.ClientID != "" {
		v, err := googleid.NewVerifier(context.Background(), cfg.Google.ClientID)
		if err != nil {
			logger.Warnf("Google verifier unavailable, ID tokens will be sent unchecked: %v", err)
		} else {
			opts = append(opts, session.WithGoogleVerifier(v))
		}
	}

	mgr := session.NewManager(cfg.Session, client, st, opts...)
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.Timeout+5*time.Second)
	defer cancel()

	if err := mgr.Initialize(ctx); err != nil {
		logger.Warnf("session initialization incomplete: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if err := run(ctx, mgr, client, os.Args[1], os.Args[2:]); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx context.Context, mgr *session.Manager, client *api.Client, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 2 {
			return fmt.Errorf("usage: liferank login <email> <password>")
		}
		if err := mgr.Login(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("signed in as %s\n", mgr.State().User.Email)
		return nil

	case "register":
		if len(args) < 2 {
			return fmt.Errorf("usage: liferank register <email> <password> [full name]")
		}
		req := api.RegisterRequest{Email: args[0], Password: args[1]}
		if len(args) > 2 {
			name := strings.Join(args[2:], " ")
			req.FullName = &name
		}
		if err := mgr.Register(ctx, req); err != nil {
			return err
		}
		fmt.Printf("registered as %s\n", mgr.State().User.Email)
		return nil

	case "google":
		if len(args) != 1 {
			return fmt.Errorf("usage: liferank google <id-token>")
		}
		if err := mgr.GoogleLogin(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("signed in as %s\n", mgr.State().User.Email)
		return nil

	case "status":
		s := mgr.State()
		if !s.IsAuthenticated {
			fmt.Println("not signed in")
			return nil
		}
		fmt.Printf("signed in as %s\n", s.User.Email)
		return nil

	case "profile":
		if !mgr.IsAuthenticated() {
			return fmt.Errorf("not signed in")
		}
		u := mgr.RefreshUser(ctx)
		printUser(u)
		return nil

	case "update":
		if len(args) == 0 {
			return fmt.Errorf("usage: liferank update <field>=<value> ... (full_name, age, gender, location)")
		}
		upd, err := parseUpdate(args)
		if err != nil {
			return err
		}
		u, err := mgr.UpdateUser(ctx, upd)
		if err != nil {
			return err
		}
		printUser(u)
		return nil

	case "chat":
		if len(args) == 0 {
			return fmt.Errorf("usage: liferank chat <message>")
		}
		reply, err := client.SendChatMessage(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("coach: %s\n", reply.Message)
		return nil

	case "history":
		msgs, err := client.ChatHistory(ctx, 20)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp, m.Sender, m.Message)
		}
		return nil

	case "logout":
		mgr.Logout()
		fmt.Println("signed out")
		return nil

	case "delete":
		if err := mgr.DeleteAccount(ctx); err != nil {
			return err
		}
		fmt.Println("account deleted")
		return nil

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parseUpdate(args []string) (models.UserUpdate, error) {
	var upd models.UserUpdate
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			return upd, fmt.Errorf("expected <field>=<value>, got %q", a)
		}
		switch k {
		case "full_name":
			upd.FullName = &v
		case "age":
			n, err := strconv.Atoi(v)
			if err != nil {
				return upd, fmt.Errorf("age must be a number: %q", v)
			}
			upd.Age = &n
		case "gender":
			upd.Gender = &v
		case "location":
			upd.Location = &v
		default:
			return upd, fmt.Errorf("unknown field %q (full_name, age, gender, location)", k)
		}
	}
	return upd, nil
}

func printUser(u *models.User) {
	if u == nil {
		fmt.Println("no profile")
		return
	}
	fmt.Printf("id:       %d\n", u.ID)
	fmt.Printf("email:    %s\n", u.Email)
	if u.FullName != nil {
		fmt.Printf("name:     %s\n", *u.FullName)
	}
	if u.Age != nil {
		fmt.Printf("age:      %d\n", *u.Age)
	}
	if u.Gender != nil {
		fmt.Printf("gender:   %s\n", *u.Gender)
	}
	if u.Location != nil {
		fmt.Printf("location: %s\n", *u.Location)
	}
	fmt.Printf("active:   %t verified: %t\n", u.IsActive, u.IsVerified)
}

func usage() {
	fmt.Fprintln(os.Stderr, `liferank <command>

commands:
  login <email> <password>
  register <email> <password> [full name]
  google <id-token>
  status
  profile
  update <field>=<value> ...
  chat <message>
  history
  logout
  delete`)
}
