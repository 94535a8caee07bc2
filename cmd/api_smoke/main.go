package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"shibads/internal/logger"
	"shibads/internal/telegram"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
)

type envelope struct {
	OK    bool           `json:"ok"`
	Data  map[string]any `json:"data"`
	Error string         `json:"error"`
}

// api_smoke drives register, requestActionId, watchAd and getUserData
// against a running server.
func main() {
	base := flag.String("url", "", "server base url (default http://localhost:$APP_PORT)")
	userID := flag.Int64("id", 3001, "telegram user id")
	wait := flag.Duration("wait", 3*time.Second, "pause before watchAd to clear the per-user action spacing")
	flag.Parse()

	_ = godotenv.Load()
	logger.Init("info", false)

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		logger.Fatal("BOT_TOKEN not set")
	}
	if *base == "" {
		port := os.Getenv("APP_PORT")
		if port == "" {
			port = "8080"
		}
		*base = "http://localhost:" + port
	}

	signer := telegram.NewVerifier(botToken, 0)
	rc := resty.New().SetBaseURL(*base).SetTimeout(10 * time.Second)

	call := func(typ string, extra map[string]any) envelope {
		body := map[string]any{
			"type":     typ,
			"initData": signer.UserInitData(*userID, time.Now()),
			"user_id":  *userID,
		}
		for k, v := range extra {
			body[k] = v
		}
		var out envelope
		resp, err := rc.R().SetBody(body).SetResult(&out).SetError(&out).Post("/api")
		if err != nil {
			logger.Fatal("request failed", "type", typ, "error", err)
		}
		logger.Info("response", "type", typ, "status", resp.StatusCode(), "ok", out.OK, "error", out.Error)
		if resp.StatusCode() != http.StatusOK && typ != "register" {
			os.Exit(1)
		}
		return out
	}

	// register answers 409 on reruns
	call("register", nil)

	time.Sleep(*wait)
	token := call("requestActionId", map[string]any{"action_type": "watchAd"})
	res := call("watchAd", map[string]any{"action_id": token.Data["action_id"]})
	fmt.Printf("new_balance=%v new_ads_count=%v\n", res.Data["new_balance"], res.Data["new_ads_count"])

	data := call("getUserData", nil)
	fmt.Printf("balance=%v referrals=%v\n", data.Data["balance"], data.Data["referrals_count"])
}
