package notify

import (
	"strings"

	"github.com/hazuki802/bukkaku/internal/store"
)

// brand prefixes every outbound message so staff can filter bukkaku traffic
// in shared LINE and Slack channels.
const brand = "【物確くん】"

var platformLabels = map[store.Platform]string{
	store.PlatformItandi:   "イタンジBB",
	store.PlatformIelove:   "いえらぶBB",
	store.PlatformEsSquare: "いい生活スクエア",
}

// PlatformLabel returns the user-facing name of a platform.
func PlatformLabel(platform store.Platform) string {
	if label, ok := platformLabels[platform]; ok {
		return label
	}
	return string(platform)
}

// Message renders the notification text for an event. Unknown events render
// empty and are dropped by the fanout.
func Message(event Event, payload Payload) string {
	var b strings.Builder
	switch event {
	case EventCaseCompleted, EventCaseNotFound:
		b.WriteString(brand)
		b.WriteString(payload["property"])
		b.WriteString("\n結果: ")
		b.WriteString(payload["result"])
		if platform := payload["platform"]; platform != "" {
			b.WriteString("\n確認先: ")
			b.WriteString(platform)
		}
	case EventEscalation:
		b.WriteString(brand)
		b.WriteString(payload["property"])
		b.WriteString("\n要電話確認: ")
		b.WriteString(payload["company"])
		if phone := payload["phone"]; phone != "" {
			b.WriteString(" ")
			b.WriteString(phone)
		}
		if reason := payload["reason"]; reason != "" {
			b.WriteString("\n理由: ")
			b.WriteString(reason)
		}
	case EventError:
		b.WriteString(brand)
		b.WriteString(payload["property"])
		b.WriteString("\nエラー: ")
		b.WriteString(payload["error"])
	case EventTest:
		b.WriteString(brand)
		b.WriteString("通知テスト")
	}
	return b.String()
}
