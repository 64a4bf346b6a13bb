package executor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const noItems = "No items found."

// FormatResult 把任务结果转成聊天文本：邮件列表、{summary} 原样、其他缩进 JSON
func FormatResult(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return string(raw)
	}
	r := gjson.ParseBytes(raw)
	switch {
	case r.IsArray():
		items := r.Array()
		switch {
		case len(items) == 0:
			return noItems
		case items[0].IsObject() && items[0].Get("subject").Exists():
			return formatEmails(items)
		}
		return formatList(items)
	case r.IsObject() && r.Get("summary").Type == gjson.String && r.Get("summary").String() != "":
		return r.Get("summary").String()
	default:
		var out bytes.Buffer
		if err := json.Indent(&out, raw, "", "  "); err != nil {
			return string(raw)
		}
		return out.String()
	}
}

func formatEmails(items []gjson.Result) string {
	parts := make([]string, 0, len(items))
	for i, e := range items {
		parts = append(parts, fmt.Sprintf("%d. **%s**\n   From: %s\n   %s\n   _%s_",
			i+1, e.Get("subject").String(), e.Get("from").String(), e.Get("snippet").String(), e.Get("received").String()))
	}
	return "📬 Your latest emails:\n\n" + strings.Join(parts, "\n\n")
}

func formatList(items []gjson.Result) string {
	lines := make([]string, 0, len(items))
	for i, it := range items {
		text := it.Raw
		if it.Type == gjson.String {
			text = it.String()
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, text))
	}
	return strings.Join(lines, "\n")
}
