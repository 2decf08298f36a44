package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazuki802/bukkaku/internal/config"
	"github.com/hazuki802/bukkaku/internal/store"
)

func TestNewServiceNoopWithoutSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.LineChannelToken = ""
	cfg.Notifications.SlackWebhookURL = ""

	svc := NewService(&cfg, nil)
	if err := svc.Publish(context.Background(), EventCaseCompleted, Payload{"property": "x"}); err != nil {
		t.Fatalf("noop service must not fail: %v", err)
	}
}

func TestMessageFormats(t *testing.T) {
	cases := []struct {
		name    string
		event   Event
		payload Payload
		want    string
	}{
		{
			name:  "completed with platform",
			event: EventCaseCompleted,
			payload: Payload{
				"property": "グランドメゾン青葉台 203",
				"result":   "募集中",
				"platform": "イタンジBB",
			},
			want: "【物確くん】グランドメゾン青葉台 203\n結果: 募集中\n確認先: イタンジBB",
		},
		{
			name:  "not found",
			event: EventCaseNotFound,
			payload: Payload{
				"property": "メゾン・ド・スドウ",
				"result":   "確認不可（専任物件の可能性）",
			},
			want: "【物確くん】メゾン・ド・スドウ\n結果: 確認不可（専任物件の可能性）",
		},
		{
			name:  "escalation",
			event: EventEscalation,
			payload: Payload{
				"property": "コーポ青葉",
				"company":  "株式会社コスモ不動産",
				"phone":    "045-123-4567",
				"reason":   "プラットフォーム未対応",
			},
			want: "【物確くん】コーポ青葉\n要電話確認: 株式会社コスモ不動産 045-123-4567\n理由: プラットフォーム未対応",
		},
		{
			name:  "error",
			event: EventError,
			payload: Payload{
				"property": "https://suumo.jp/chintai/jnc_0001/",
				"error":    "listing page had no recognizable name or address",
			},
			want: "【物確くん】https://suumo.jp/chintai/jnc_0001/\nエラー: listing page had no recognizable name or address",
		},
		{
			name:  "test",
			event: EventTest,
			want:  "【物確くん】通知テスト",
		},
		{
			name:  "unknown",
			event: Event("mystery"),
			want:  "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Message(tc.event, tc.payload); got != tc.want {
				t.Fatalf("Message(%s) = %q, want %q", tc.event, got, tc.want)
			}
		})
	}
}

func TestPlatformLabel(t *testing.T) {
	if got := PlatformLabel(store.PlatformItandi); got != "イタンジBB" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := PlatformLabel(store.Platform("other")); got != "other" {
		t.Fatalf("unknown platform should pass through, got %q", got)
	}
}

func TestPublishDeliversToSlack(t *testing.T) {
	var captured string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("decode body: %v", err)
		}
		captured = payload.Text
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.SlackWebhookURL = srv.URL

	svc := NewService(&cfg, nil)
	err := svc.Publish(context.Background(), EventCaseCompleted, Payload{
		"property": "コーポ青葉",
		"result":   "申込あり",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if captured != "【物確くん】コーポ青葉\n結果: 申込あり" {
		t.Fatalf("unexpected slack text: %q", captured)
	}
}

func TestPublishHonorsEventToggles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected delivery for disabled event")
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.SlackWebhookURL = srv.URL
	cfg.Notifications.CaseNotFound = false

	svc := NewService(&cfg, nil)
	if err := svc.Publish(context.Background(), EventCaseNotFound, Payload{"property": "x", "result": "y"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestPublishReportsSinkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no_service", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Notifications.SlackWebhookURL = srv.URL

	svc := NewService(&cfg, nil)
	if err := svc.Publish(context.Background(), EventTest, nil); err == nil {
		t.Fatal("expected delivery error")
	}
}

func TestLineSinkSendsPush(t *testing.T) {
	var gotAuth string
	var gotPush linePush
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &gotPush); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	s := &lineSink{
		endpoint: srv.URL,
		token:    "channel-token",
		to:       "U1234567890",
		client:   &http.Client{Timeout: 5 * time.Second},
	}
	if err := s.send(context.Background(), "【物確くん】通知テスト"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotAuth != "Bearer channel-token" {
		t.Fatalf("unexpected authorization header: %q", gotAuth)
	}
	if gotPush.To != "U1234567890" || len(gotPush.Messages) != 1 {
		t.Fatalf("unexpected push payload: %+v", gotPush)
	}
	if gotPush.Messages[0].Type != "text" || gotPush.Messages[0].Text != "【物確くん】通知テスト" {
		t.Fatalf("unexpected message: %+v", gotPush.Messages[0])
	}
}
