package layout

import (
	"encoding/json"
	"os"
)

// BoxDebug 记录单个文本框的排版结果，便于调试或可视化。
type BoxDebug struct {
	Token string       `json:"token"`
	Value string       `json:"value"`
	Box   Box          `json:"box"`
	Lines []PlacedLine `json:"lines"`
}

// PageDebug 为一页的调试信息。
type PageDebug struct {
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
	Boxes  []BoxDebug `json:"boxes"`
}

// WriteDebugJSON 将排版结果输出为 JSON。
func WriteDebugJSON(page *PageDebug, path string) error {
	if page == nil {
		return nil
	}
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
