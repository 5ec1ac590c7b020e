package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"TradeDesk/internal/model"
)

// fakeBotAPI records sendMessage calls and fails the first failures of them.
type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []map[string]any
	failures int
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
		w.Write([]byte(`{"ok":true,"result":true}`))
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
		return
	}
	f.sent = append(f.sent, body)
	w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`))
}

func (f *fakeBotAPI) setFailures(n int) {
	f.mu.Lock()
	f.failures = n
	f.mu.Unlock()
}

func (f *fakeBotAPI) messages() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.sent...)
}

func newTestNotifier(t *testing.T, api *fakeBotAPI) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	n, err := newTelegramNotifier(tele.Settings{
		URL:         srv.URL,
		Token:       "test-token",
		Offline:     true,
		Synchronous: true,
	}, "42")
	require.NoError(t, err)
	n.Backoff = time.Millisecond
	return n
}

func TestSend(t *testing.T) {
	api := &fakeBotAPI{}
	n := newTestNotifier(t, api)

	require.NoError(t, n.Send("<b>hello</b>"))
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "<b>hello</b>", msgs[0]["text"])
	assert.Equal(t, "HTML", msgs[0]["parse_mode"])
}

func TestSendWithRetry(t *testing.T) {
	api := &fakeBotAPI{failures: 2}
	n := newTestNotifier(t, api)

	require.NoError(t, n.SendWithRetry(context.Background(), "retry me", 3))
	assert.Len(t, api.messages(), 1)

	api.setFailures(5)
	err := n.SendWithRetry(context.Background(), "give up", 1)
	assert.ErrorContains(t, err, "retries exhausted")
}

func TestSendWithRetryHonoursContext(t *testing.T) {
	api := &fakeBotAPI{failures: 10}
	n := newTestNotifier(t, api)
	n.Backoff = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := n.SendWithRetry(ctx, "x", 3)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBadChatID(t *testing.T) {
	_, err := newTelegramNotifier(tele.Settings{Offline: true}, "abc")
	assert.Error(t, err)
}

func TestCommandsOnlyFromConfiguredChat(t *testing.T) {
	api := &fakeBotAPI{}
	n := newTestNotifier(t, api)

	var got []string
	n.register(func(cmd string) string {
		got = append(got, cmd)
		return "reply to " + cmd
	})

	n.bot.ProcessUpdate(tele.Update{ID: 1, Message: &tele.Message{
		Text: " /buy TCS 5 ", Chat: &tele.Chat{ID: 42}, Sender: &tele.User{ID: 42},
	}})
	n.bot.ProcessUpdate(tele.Update{ID: 2, Message: &tele.Message{
		Text: "/portfolio", Chat: &tele.Chat{ID: 99}, Sender: &tele.User{ID: 99},
	}})

	assert.Equal(t, []string{"/buy TCS 5"}, got)
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "reply to /buy TCS 5", msgs[0]["text"])
}

func TestMoney(t *testing.T) {
	f := Formatter{Currency: "INR"}
	assert.Equal(t, "₹1,234.50", f.Money(1234.5))
	assert.Equal(t, "₹0.00", f.Money(0))
	assert.Equal(t, "-₹20.00", f.Money(-20))
	assert.Equal(t, "₹0.01", f.Money(0.005))

	usd := Formatter{Currency: "USD"}
	assert.Equal(t, "$1,000,000.00", usd.Money(1e6))

	unknown := Formatter{Currency: "XXQ"}
	assert.Equal(t, "1.50 XXQ", unknown.Money(1.5))
}

func TestFormatSignals(t *testing.T) {
	f := Formatter{Currency: "INR"}
	at := time.Date(2024, 6, 28, 15, 45, 0, 0, time.UTC)
	quotes := []model.Quote{
		{Symbol: "TCS", Close: 3500, ChangePct: 1.25, RSI: model.Float(25), MA9: model.Float(3400), Signal: model.SignalBuy},
		{Symbol: "NEW", Close: 10, Signal: model.SignalHold},
	}
	out := f.FormatSignals(quotes, map[string]error{"BAD": errors.New("x")}, at)
	assert.Contains(t, out, "TCS")
	assert.Contains(t, out, "₹3,500.00")
	assert.Contains(t, out, "RSI 25.0")
	assert.Contains(t, out, "RSI n/a")
	assert.Contains(t, out, "Unavailable: BAD")

	assert.Empty(t, f.FormatAlerts(quotes[1:], at))
	alerts := f.FormatAlerts(quotes, at)
	assert.Contains(t, alerts, "BUY TCS")
	assert.NotContains(t, alerts, "NEW")
}

func TestFormatPortfolioAndMetrics(t *testing.T) {
	f := Formatter{Currency: "INR"}
	m := model.PortfolioMetrics{
		Cash: 90000, PositionsValue: 11000, TotalValue: 101000, WinRate: 100, MaxDrawdown: 1.5,
		Positions: []model.PositionMetrics{{Symbol: "INFY", Shares: 10, AvgPrice: 1000, CurrentPrice: 1100,
			UnrealizedPL: 1000, ReturnPct: model.Float(10), DaysHeld: 4}},
		Missing: []string{"ITC"},
		Best:    &model.Performer{Symbol: "INFY", ReturnPct: 10},
	}
	p := f.FormatPortfolio(m)
	assert.Contains(t, p, "₹101,000.00")
	assert.Contains(t, p, "+10.00%")
	assert.Contains(t, p, "No price for: ITC")

	mt := f.FormatMetrics(m)
	assert.Contains(t, mt, "Win rate: 100.0%")
	assert.Contains(t, mt, "Max drawdown: 1.50%")
	assert.Contains(t, mt, "Best: INFY")
}

func TestFormatTrades(t *testing.T) {
	f := Formatter{Currency: "INR"}
	at := time.Date(2024, 6, 28, 10, 0, 0, 0, time.UTC)
	trades := []model.Trade{
		{ID: 1, Symbol: "A", Type: model.Buy, Quantity: 1, Price: 100, Timestamp: at},
		{ID: 2, Symbol: "B", Type: model.Buy, Quantity: 1, Price: 100, Timestamp: at},
		{ID: 3, Symbol: "A", Type: model.Sell, Quantity: 1, Price: 110, RealizedPL: model.Float(-10), Timestamp: at},
	}
	out := f.FormatTrades(trades, 2)
	assert.Contains(t, out, "#3")
	assert.Contains(t, out, "#2")
	assert.NotContains(t, out, "#1 ")
	assert.Contains(t, out, "1 older")
	assert.Contains(t, out, "P/L -₹10.00")
	assert.True(t, strings.Index(out, "#3") < strings.Index(out, "#2"))

	assert.Contains(t, f.FormatTrades(nil, 10), "No trades yet")
}

func TestFormatError(t *testing.T) {
	err := &model.ValidationError{Rule: "min_trade", Message: "value < 1000"}
	out := FormatError(err)
	assert.Contains(t, out, "<b>validation</b>")
	assert.Contains(t, out, "value &lt; 1000")
	assert.Equal(t, "❌ boom", FormatError(errors.New("boom")))
}
