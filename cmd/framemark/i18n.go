package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Flag categories
		"Configuration": "設定",
		"Logging":       "ログ",
		"Tools":         "外部ツール",

		// Root command
		"Frame-accurate video marking":                                                                                          "フレーム単位の動画マーキング",
		"framemark steps through videos frame by frame, records start and end markers, and compares marker files side by side.": "framemarkは動画をフレーム単位で送り、開始・終了マーカーを記録し、マーカーファイルを並べて比較します。",

		// Global flags
		"YAML configuration file":                       "YAML設定ファイル",
		"Log level (debug, info, warn, error)":          "ログレベル（debug, info, warn, error）",
		"Suppress all log output":                       "全てのログ出力を抑制",
		"Path to the ffmpeg executable":                 "ffmpeg実行ファイルのパス",
		"Path to the ffprobe executable":                "ffprobe実行ファイルのパス",
		"Do not run ffprobe, use demuxer metadata only": "ffprobeを使わず、デマルチプレクサのメタデータのみを使用",

		// Version command
		"Show version information": "バージョン情報を表示",
		"framemark version %s":     "framemark バージョン %s",

		// Probe command
		"Show stream information of a video":       "動画のストリーム情報を表示",
		"Output summary to file (Markdown format)": "サマリーをファイルに出力（Markdown形式）",
		"File: %s":                                 "ファイル: %s",
		"Container: %s (%s timing)":                "コンテナ: %s（%s タイミング）",
		"Codec: %s, %dx%d":                         "コーデック: %s, %dx%d",
		"Frame rate: %.3f fps, time base %s":       "フレームレート: %.3f fps, タイムベース %s",
		"Duration: %s, %d frames":                  "再生時間: %s, %d フレーム",
		"Chapter %d: %s (%s - %s)":                 "チャプター %d: %s（%s - %s）",

		// Frame command
		"Export one frame as an image":                                     "1フレームを画像として書き出し",
		"Output image path (.png or .jpg)":                                 "出力画像のパス（.png または .jpg）",
		"Interpret the position as milliseconds instead of a frame number": "位置をフレーム番号ではなくミリ秒として解釈",
		"Resize the frame to this width":                                   "フレームをこの幅に縮小・拡大",
		"JPEG quality (1-100)":                                             "JPEG品質（1-100）",
		"Place a frame of another video to the right":                      "別の動画のフレームを右側に並べる",
		"Frame of the --beside video (default: same position)":             "--beside 動画のフレーム（デフォルト: 同じ位置）",
		"Invalid position: %s":                                             "不正な位置です: %s",
		"Saved %dx%d image to %s":                                          "%dx%d の画像を %s に保存しました",
		"Frame %d at %s saved to %s (%dx%d)":                               "%[2]s のフレーム %[1]d を %[3]s に保存しました（%[4]dx%[5]d）",

		// Play command
		"Play a video frame by frame at its frame rate": "動画をフレームレートに従って1フレームずつ再生",
		"Playback speed multiplier":                     "再生速度の倍率",
		"Start at this frame":                           "このフレームから開始",
		"Stop after this frame":                         "このフレームで停止",
		"Playing":                                       "再生中",
		"Stopped at frame %d (%s)":                      "フレーム %d（%s）で停止しました",

		// Sheet command
		"Draw evenly spaced frames of a video on one image": "動画から等間隔に選んだフレームを1枚の画像に並べる",
		"Number of frames to show":                          "表示するフレーム数",
		"Number of columns (min: 1)":                        "カラム数（最小: 1）",
		"Width of each thumbnail in pixels":                 "サムネイルの幅（ピクセル）",
		"Number of scaling workers (0 = one per CPU)":       "縮小処理のワーカー数（0 = CPU数）",
		"Decoding":                                          "デコード中",
		"Saved %d frames (%dx%d) to %s":                     "%d フレーム（%dx%d）を %s に保存しました",

		// Markers command
		"Check and edit marker files":                                  "マーカーファイルの検査と編集",
		"Load marker files and report malformed or out-of-order lines": "マーカーファイルを読み込み、不正な行や順序の乱れを報告",
		"Exit with status 1 when a file has issues":                    "問題のあるファイルがあれば終了コード1で終了",
		"End the open marker and start a new one":                      "開いているマーカーを終了し、新しいマーカーを開始",
		"Frame that ends the open marker":                              "開いているマーカーを終了するフレーム",
		"Frame that starts a new marker":                               "新しいマーカーを開始するフレーム",
		"Nothing to do: give --end, --start or both":                   "何もすることがありません: --end、--start またはその両方を指定してください",
		"Change the start (column 0) or end (column 1) of a marker":    "マーカーの開始（列0）または終了（列1）を変更",
		"Remove a marker":                                              "マーカーを削除",
		"Remove all markers":                                           "全てのマーカーを削除",
		"Invalid number: %s":                                           "不正な数値です: %s",
		"%s: %d markers, %d open, %d skipped lines, %d out of order":   "%s: マーカー %d 件, 未終了 %d 件, スキップした行 %d, 順序の乱れ %d",
		"  line %d skipped: %s":                                        "  %d 行目をスキップ: %s",
		"  line %d out of order: %s":                                   "  %d 行目の順序が乱れています: %s",

		// Compare command
		"Align two marker files and highlight the differences": "2つのマーカーファイルを揃えて差分を強調表示",
		"Also draw the comparison as an image (.png or .jpg)":  "比較結果を画像にも出力（.png または .jpg）",
		"Do not color highlighted rows":                        "強調行を色付けしない",
		"Exit with status 1 when the files differ":             "ファイルが異なる場合は終了コード1で終了",

		// Argument errors
		"Expected %d arguments: %s":          "引数が %d 個必要です: %s",
		"Expected at least one argument: %s": "引数が1個以上必要です: %s",
		"Error: %s":                          "エラー: %s",
		"Failed to write summary: %s":        "サマリーの書き込みに失敗しました: %s",

		// Summary content
		"framemark Summary": "framemark サマリー",
		"Generated":         "生成日時",
		"Generated by":      "生成:",
		"Item":              "項目",
		"Value":             "値",

		// Video section
		"Video":        "動画",
		"File":         "ファイル",
		"File Size":    "ファイルサイズ",
		"Container":    "コンテナ",
		"Timing Model": "タイミングモデル",
		"Codec":        "コーデック",
		"Resolution":   "解像度",
		"Frame Rate":   "フレームレート",
		"Frame Count":  "フレーム数",
		"Duration":     "再生時間",
		"Bit Rate":     "ビットレート",
		"Time Base":    "タイムベース",
		"Chapters":     "チャプター",
		"Title":        "タイトル",
		"Start":        "開始",
		"End":          "終了",

		// Seeking section
		"Seeking":         "シーク",
		"Container Seeks": "コンテナシーク回数",
		"Retreats":        "後退回数",
		"Packets Read":    "読み込みパケット数",
		"Frames Decoded":  "デコードしたフレーム数",
		"Cache Hits":      "キャッシュヒット数",
		"Decode Errors":   "デコードエラー数",

		// Marker files section
		"Marker Files":  "マーカーファイル",
		"Markers":       "マーカー数",
		"Open":          "未終了",
		"Skipped Lines": "スキップした行",
		"Out of Order":  "順序の乱れ",

		// Comparison section
		"Comparison":       "比較",
		"Left":             "左",
		"Right":            "右",
		"Rows":             "行数",
		"Highlighted Rows": "強調行数",
		"Result":           "結果",
		"Identical":        "一致",
		"Different":        "相違あり",
	})
}
