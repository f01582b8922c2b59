package auth

import (
	"net/url"
	"strings"
)

// SafeRedirect はログイン後の遷移先として安全な同一オリジンの相対パスだけを返します。
// 安全でない場合は空文字を返します。
func SafeRedirect(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") {
		return ""
	}
	// //evil.example や /\evil.example はブラウザが別ホストとして解釈する
	if strings.HasPrefix(target, "//") || strings.ContainsAny(target, "\\\r\n\t") {
		return ""
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return ""
	}
	return target
}
