package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Seeking
		"Opened %s: %s, %dx%d, %.3f fps, time base %s":                  "%s を開きました: %s, %dx%d, %.3f fps, タイムベース %s",
		"Seeking to frame %d":                                           "フレーム %d へシーク中",
		"Retreating to %d, wanted %d ms":                                "%d まで後退します（目標 %d ms）",
		"First frame at %d ms is past %d ms, accepting start of stream": "最初のフレーム %d ms が %d ms より後のため、ストリームの先頭を採用します",
		"Skipping packet: %s":                                           "パケットをスキップ: %s",
		"End of stream":                                                 "ストリームの終端です",
		"%d seeks, %d packets read, %d frames decoded, %d cache hits":   "シーク %d 回, パケット読み込み %d, フレームデコード %d, キャッシュヒット %d",

		// Playback
		"Playing at %.3f fps":      "%.3f fps で再生中",
		"Interrupted, stopping...": "中断されました。停止中...",

		// Markers
		"Loaded %d markers from %s":              "%[2]s から %[1]d 件のマーカーを読み込みました",
		"Saved %d markers to %s":                 "%[1]d 件のマーカーを %[2]s に保存しました",
		"Skipped line %d of %s: %s (%s)":         "%[2]s の %[1]d 行目をスキップしました: %[3]s（%[4]s）",
		"Line %d of %s is out of order: %s":      "%[2]s の %[1]d 行目の順序が乱れています: %[3]s",
		"Aligned %d and %d markers into %d rows": "%d 件と %d 件のマーカーを %d 行に揃えました",

		// Images
		"Saved frame %d (%d ms) to %s":                      "フレーム %d（%d ms）を %s に保存しました",
		"Placed frame %d of %s beside frame %d of %s in %s": "%[2]s のフレーム %[1]d と %[4]s のフレーム %[3]d を並べて %[5]s に保存しました",
		"Scaling %d frames with %d workers":                 "%d フレームを %d ワーカーで縮小中",
		"Saved contact sheet of %d frames to %s":            "%d フレームのコンタクトシートを %s に保存しました",
		"Saved comparison of %d rows to %s":                 "%d 行の比較結果を %s に保存しました",

		// Files
		"Cannot read size of %s: %v": "%s のサイズを取得できません: %v",
		"Summary saved to %s":        "サマリーを %s に保存しました",
	})
}
