package fitbit

import (
	"math"
	"strconv"
	"time"

	"github.com/Michelan98/sleep-society/internal/model"
)

// 品質スコアのステージ別重み。深い睡眠を最も高く評価する。
const (
	deepWeight  = 1.5
	remWeight   = 1.2
	lightWeight = 0.5

	// idealSleepMinutes はエナジースコアの基準となる理想睡眠時間（8時間）。
	idealSleepMinutes = 8 * 60
)

// fitbitTimeLayouts はFitbit APIが返すstartTimeのパターン。
// ミリ秒付きが通常だが、古いログにはミリ秒なしの形式が混在する。
var fitbitTimeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

// ConvertSleepResponse はFitbit睡眠レスポンスを正規化済みの睡眠記録に変換する。
// レスポンスに睡眠ログが含まれない場合はnilを返す。
// 複数のログが含まれる場合は最新の1件（先頭要素）のみを使用する。
//
// 導出値の計算:
//   - ステージ割合 = round(ステージ分 / 全ステージ合計分 × 100)。合計0なら全て0。
//   - 品質スコア = round(deepPct×1.5 + remPct×1.2 + lightPct×0.5)。上限100。
//   - エナジースコア = round(品質スコア × min(1, 睡眠分 / 480))。
//     8時間未満の睡眠は線形に減点され、8時間以上でも品質スコアを超えない。
func ConvertSleepResponse(resp *model.FitbitSleepResponse) *model.SleepRecord {
	if resp == nil || len(resp.Sleep) == 0 {
		return nil
	}

	entry := resp.Sleep[0]
	summary := entry.Levels.Summary

	deepMin := summary.Deep.Minutes
	lightMin := summary.Light.Minutes
	remMin := summary.Rem.Minutes
	wakeMin := summary.Wake.Minutes
	totalClassified := deepMin + lightMin + remMin + wakeMin

	var deepPct, remPct, lightPct int
	if totalClassified > 0 {
		deepPct = roundPct(deepMin, totalClassified)
		remPct = roundPct(remMin, totalClassified)
		lightPct = roundPct(lightMin, totalClassified)
	}

	quality := int(math.Round(float64(deepPct)*deepWeight + float64(remPct)*remWeight + float64(lightPct)*lightWeight))
	if quality > 100 {
		quality = 100
	}

	durationMinutes := float64(entry.DurationMS) / 60000
	scale := durationMinutes / idealSleepMinutes
	if scale > 1 {
		scale = 1
	}
	energy := int(math.Round(float64(quality) * scale))

	return &model.SleepRecord{
		Date:           parseSleepDate(entry.StartTime),
		Duration:       formatDuration(entry.DurationMS),
		QualityPercent: quality,
		EnergyScore:    energy,
		DeepPct:        deepPct,
		RemPct:         remPct,
		LightPct:       lightPct,
		AwakeMinutes:   wakeMin,
		FitbitLogID:    strconv.FormatInt(entry.LogID, 10),
	}
}

// roundPct は割合を四捨五入した整数パーセントを返す。
func roundPct(part, total int) int {
	return int(math.Round(float64(part) / float64(total) * 100))
}

// formatDuration は睡眠時間（ミリ秒）を "{h}h {m}m" 形式の文字列にする。
// 時は切り捨て、分は60で剰余を取った値の四捨五入。
func formatDuration(durationMS int64) string {
	hours := durationMS / 3600000
	minutes := math.Round(math.Mod(float64(durationMS)/60000, 60))
	return strconv.FormatInt(hours, 10) + "h " + strconv.FormatInt(int64(minutes), 10) + "m"
}

// parseSleepDate はFitbitのstartTime文字列から睡眠日を取り出す。
// どのレイアウトにも一致しない場合はゼロ値を返し、呼び出し側が補完する。
func parseSleepDate(startTime string) time.Time {
	for _, layout := range fitbitTimeLayouts {
		if t, err := time.Parse(layout, startTime); err == nil {
			return t
		}
	}
	return time.Time{}
}
