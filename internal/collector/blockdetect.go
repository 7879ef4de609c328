package collector

import (
	"context"
	"strings"
)

// blockKeywords はCAPTCHA・ブロック画面の検知キーワード。
// 本文テキストとページソースの両方を小文字化して照合する。
var blockKeywords = []string{
	"captcha", "ロボット", "robot", "ブロック", "block",
	"verify", "verification", "challenge", "access denied",
	"アクセス拒否", "アクセスブロック", "bot detection",
}

// DetectBlock はブロック画面かどうかを判定し、一致したキーワードを返す。
// 取得エラーは検知なしとして扱う。
func DetectBlock(ctx context.Context, drv Driver) (bool, string) {
	bodyText, err := drv.PageText(ctx)
	if err != nil {
		return false, ""
	}
	pageSource, err := drv.PageHTML(ctx)
	if err != nil {
		pageSource = ""
	}

	bodyText = strings.ToLower(bodyText)
	pageSource = strings.ToLower(pageSource)
	for _, keyword := range blockKeywords {
		if strings.Contains(bodyText, keyword) || strings.Contains(pageSource, keyword) {
			return true, keyword
		}
	}
	return false, ""
}
