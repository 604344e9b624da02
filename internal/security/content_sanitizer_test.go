package security

import "testing"

// サニタイズの入出力をテーブル駆動で検証
func TestSanitizeText(t *testing.T) {
	s := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "8時間眠れてすっきり",
			want:  "8時間眠れてすっきり",
		},
		{
			name:  "scriptタグを除去",
			input: `before<script>alert("x")</script>after`,
			want:  "beforeafter",
		},
		{
			name:  "imgのonerror属性ごと除去",
			input: `<img src="x" onerror="alert(1)">note`,
			want:  "note",
		},
		{
			name:  "タグのみ除去しテキストは保持",
			input: "<b>deep sleep</b> was <i>great</i>",
			want:  "deep sleep was great",
		},
		{
			name:  "前後の空白を除去",
			input: "  rested  ",
			want:  "rested",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.SanitizeText(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// 同一入力に対する冪等性を検証
func TestSanitizeText_Idempotent(t *testing.T) {
	s := NewContentSanitizer()
	input := `<p>good <script>bad()</script>night</p>`

	first := s.SanitizeText(input)
	second := s.SanitizeText(first)

	if first != second {
		t.Errorf("sanitize is not idempotent: first = %q, second = %q", first, second)
	}
}
