package vision

import (
	"context"
	"fmt"
	"strings"
)

// Analysis 一次标注的结果: 标签集合 + 描述 + 3 个主色
type Analysis struct {
	Tags        []string
	Description string
	Colors      []string
}

// Annotator 图像标注能力: 字节进, 标签/颜色出
type Annotator interface {
	Annotate(ctx context.Context, data []byte) (Analysis, error)
}

const (
	descriptionLabelLimit = 5
	dominantColorCount    = 3
	neutralGray           = "#808080"
)

var defaultColors = []string{"#808080", "#A0A0A0", "#C0C0C0"}

// synthesizeDescription 用置信度最高的标签拼一句自然语言描述
func synthesizeDescription(labels []string) string {
	if len(labels) == 0 {
		return "No description available"
	}

	top := labels
	if len(top) > descriptionLabelLimit {
		top = top[:descriptionLabelLimit]
	}

	switch len(top) {
	case 1:
		return fmt.Sprintf("An image featuring %s.", top[0])
	case 2:
		return fmt.Sprintf("An image featuring %s and %s.", top[0], top[1])
	default:
		last := top[len(top)-1]
		return fmt.Sprintf("An image featuring %s, and %s.", strings.Join(top[:len(top)-1], ", "), last)
	}
}

// padColors 保证恰好返回 3 个颜色, 不足的用中性灰补齐
func padColors(colors []string) []string {
	if len(colors) == 0 {
		out := make([]string, dominantColorCount)
		copy(out, defaultColors)
		return out
	}
	if len(colors) > dominantColorCount {
		colors = colors[:dominantColorCount]
	}
	out := make([]string, 0, dominantColorCount)
	out = append(out, colors...)
	for len(out) < dominantColorCount {
		out = append(out, neutralGray)
	}
	return out
}

func rgbToHex(r, g, b float32) string {
	clamp := func(v float32) int {
		n := int(v + 0.5)
		if n < 0 {
			return 0
		}
		if n > 255 {
			return 255
		}
		return n
	}
	return fmt.Sprintf("#%02X%02X%02X", clamp(r), clamp(g), clamp(b))
}

func normalizeLabels(labels []string, max int) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		normalized := strings.ToLower(strings.TrimSpace(label))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
		if len(out) == max {
			break
		}
	}
	return out
}
