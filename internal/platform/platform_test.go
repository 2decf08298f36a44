package platform

import (
	"strings"
	"testing"

	"github.com/hazuki802/bukkaku/internal/jptext"
	"github.com/hazuki802/bukkaku/internal/store"
	"github.com/hazuki802/bukkaku/internal/testsupport"
)

func TestClassifyStatusText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Availability
		ok   bool
	}{
		{"active", "この物件は現在募集中です", AvailabilityActive, true},
		{"vacant wording", "空室あり、即入居可", AvailabilityActive, true},
		{"application pending", "ステータス: 申込中", AvailabilityApplied, true},
		{"closed with trailing mi", "成約済みのため紹介できません", AvailabilityEnded, true},
		{"publication ended", "この物件は掲載終了しました", AvailabilityEnded, true},
		{"first keyword wins", "募集中 1件 / 申込あり 2件", AvailabilityActive, true},
		{"no status wording", "広告掲載情報の一覧", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := classifyStatusText(tt.text)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("classifyStatusText(%q) = %q, %v, want %q, %v", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestListNotFound(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"explicit no match", "該当する物件はありません", true},
		{"zero count", "検索結果 0件", true},
		{"zero count with space", "検索結果: 0 件", true},
		{"ten hits is not zero", "検索結果 10件", false},
		{"no count at all", "条件を変更して再検索してください", false},
		{"partial phrase only", "該当する物件が見つかりました", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := listNotFound(tt.body); got != tt.want {
				t.Fatalf("listNotFound(%q) = %v, want %v", tt.body, got, tt.want)
			}
		})
	}
}

func TestItandiAvailability(t *testing.T) {
	tests := []struct {
		name string
		body string
		room string
		want Availability
	}{
		{"no hit count", "条件に一致する部屋は見つかりませんでした", "", AvailabilityNotFound},
		{"zero hits", "検索結果 0戸", "203", AvailabilityNotFound},
		{"full width count", "検索結果 ３戸 グランドメゾン青葉台", "", AvailabilityActive},
		{"room row clean", "検索結果 3戸\nグランドメゾン青葉台 203 8.5万円 1LDK", "203", AvailabilityActive},
		{"room row applied", "検索結果 3戸\nグランドメゾン青葉台 203 申込あり 8.5万円", "203", AvailabilityApplied},
		{
			"applied flag on another room",
			"検索結果 3戸 グランドメゾン青葉台 203 8.5万円 " + strings.Repeat("あ", 350) + " 501 申込あり",
			"203",
			AvailabilityActive,
		},
		{"room missing from list", "検索結果 2戸 グランドメゾン青葉台 101 102", "505", AvailabilityActive},
		{"whole page applied without room", "検索結果 1戸 コーポ青葉 申込あり", "", AvailabilityApplied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := itandiAvailability(jptext.Fold(tt.body), tt.room)
			if got != tt.want {
				t.Fatalf("itandiAvailability(..., %q) = %q, want %q", tt.room, got, tt.want)
			}
		})
	}
}

func TestRuneWindow(t *testing.T) {
	s := strings.Repeat("あ", 10) + "203" + strings.Repeat("い", 10)

	got := runeWindow(s, "203", 5)
	want := "あああああ203いい"
	if got != want {
		t.Fatalf("runeWindow = %q, want %q", got, want)
	}
	if runeWindow(s, "505", 5) != "" {
		t.Fatal("absent needle should produce an empty window")
	}
	if got := runeWindow("203号室です", "203", 5); got != "203号室" {
		t.Fatalf("window at string start = %q", got)
	}
}

func TestItandiURLPredicates(t *testing.T) {
	tests := []struct {
		url       string
		loggedIn  bool
		loginDone bool
	}{
		{"https://itandibb.com/rent_rooms/list", true, true},
		{"https://itandibb.com/users/login", false, false},
		{"https://itandi-accounts.com/oauth/authorize", false, false},
		{"https://bukkakun.com/", false, true},
		{"https://example.com/", false, false},
	}
	for _, tt := range tests {
		if got := itandiLoggedInURL(tt.url); got != tt.loggedIn {
			t.Errorf("itandiLoggedInURL(%q) = %v, want %v", tt.url, got, tt.loggedIn)
		}
		if got := itandiLoginDone(tt.url); got != tt.loginDone {
			t.Errorf("itandiLoginDone(%q) = %v, want %v", tt.url, got, tt.loginDone)
		}
	}
}

func TestIeloveLoggedInURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://bb.ielove.jp/ielovebb/top", true},
		{"https://bb.ielove.jp/ielovebb/login/index", false},
		{"https://example.com/", false},
	}
	for _, tt := range tests {
		if got := ieloveLoggedInURL(tt.url); got != tt.want {
			t.Errorf("ieloveLoggedInURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestEsSquareLoggedInURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://rent.es-square.net/bukken/chintai/search", true},
		{"https://rent.es-square.net/login", false},
		{"https://es-auth.example.com/u/login", false},
	}
	for _, tt := range tests {
		if got := esSquareLoggedInURL(tt.url); got != tt.want {
			t.Errorf("esSquareLoggedInURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestSearchKeyword(t *testing.T) {
	if got := searchKeyword("コーポ青葉", ""); got != "コーポ青葉" {
		t.Fatalf("searchKeyword without room = %q", got)
	}
	if got := searchKeyword("コーポ青葉", "203"); got != "コーポ青葉 203" {
		t.Fatalf("searchKeyword with room = %q", got)
	}
}

func TestDriversHonorEnabledFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Platforms.Itandi.Enabled = true
	cfg.Platforms.Itandi.Email = "agent@example.com"
	cfg.Platforms.Itandi.Password = "secret"

	drivers := Drivers(cfg, nil)
	if len(drivers) != 1 {
		t.Fatalf("drivers = %d, want 1", len(drivers))
	}
	if drivers[0].Platform() != store.PlatformItandi {
		t.Fatalf("driver platform = %s, want %s", drivers[0].Platform(), store.PlatformItandi)
	}

	c := NewChecker(nil, drivers, nil)
	if !c.Configured(store.PlatformItandi) {
		t.Fatal("itandi should be configured")
	}
	if c.Configured(store.PlatformIelove) {
		t.Fatal("ielove should not be configured")
	}
}
