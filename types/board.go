package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// 🎨 枚举
// =============================================================================

// BoardType 愿景板类型
type BoardType string

const (
	BoardTypeDaily     BoardType = "daily"
	BoardTypeGoal      BoardType = "goal"
	BoardTypeChallenge BoardType = "challenge"
	BoardTypeCustom    BoardType = "custom"
)

// LayoutStyle 画面布局
type LayoutStyle string

const (
	LayoutHorizontal LayoutStyle = "horizontal"
	LayoutVertical   LayoutStyle = "vertical"
	LayoutSquare     LayoutStyle = "square"
)

// Aesthetic 视觉风格
type Aesthetic string

const (
	AestheticSketch         Aesthetic = "sketch"
	AestheticPhotorealistic Aesthetic = "photorealistic"
	AestheticCollage        Aesthetic = "collage"
	AestheticModern         Aesthetic = "modern"
	AestheticVintage        Aesthetic = "vintage"
)

const (
	DefaultLayoutStyle = LayoutHorizontal
	DefaultAesthetic   = AestheticModern
	DefaultBoardType   = BoardTypeCustom
)

// BoardTypes 返回全部合法 boardType（有序）
func BoardTypes() []BoardType {
	return []BoardType{BoardTypeDaily, BoardTypeGoal, BoardTypeChallenge, BoardTypeCustom}
}

// LayoutStyles 返回全部合法 layoutStyle（有序）
func LayoutStyles() []LayoutStyle {
	return []LayoutStyle{LayoutHorizontal, LayoutVertical, LayoutSquare}
}

// Aesthetics 返回全部合法 aesthetic（有序）
func Aesthetics() []Aesthetic {
	return []Aesthetic{AestheticSketch, AestheticPhotorealistic, AestheticCollage, AestheticModern, AestheticVintage}
}

// Valid reports whether b is a known board type.
func (b BoardType) Valid() bool {
	for _, v := range BoardTypes() {
		if v == b {
			return true
		}
	}
	return false
}

// Valid reports whether l is a known layout style.
func (l LayoutStyle) Valid() bool {
	for _, v := range LayoutStyles() {
		if v == l {
			return true
		}
	}
	return false
}

// Valid reports whether a is a known aesthetic.
func (a Aesthetic) Valid() bool {
	for _, v := range Aesthetics() {
		if v == a {
			return true
		}
	}
	return false
}

// =============================================================================
// 📥 生成请求
// =============================================================================

// ChallengeRef 关联挑战的 id + name
type ChallengeRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenerationRequest 一次生成运行的输入，运行期间不可变
type GenerationRequest struct {
	RequestID   string        `json:"requestId,omitempty"`
	BoardType   BoardType     `json:"boardType,omitempty"`
	Title       string        `json:"title,omitempty"`
	Goals       []string      `json:"goals"`
	Tasks       []string      `json:"tasks,omitempty"`
	Challenge   *ChallengeRef `json:"challengeRef,omitempty"`
	LayoutStyle LayoutStyle   `json:"layoutStyle,omitempty"`
	Aesthetic   Aesthetic     `json:"aesthetic,omitempty"`
	OwnerID     string        `json:"ownerId,omitempty"`
}

// Normalize 返回应用默认值后的副本：裁剪空白、丢弃空 goal/task、补齐枚举默认值。
// 原请求不会被修改。
func (r GenerationRequest) Normalize() GenerationRequest {
	out := r
	out.RequestID = strings.TrimSpace(r.RequestID)
	out.Title = strings.TrimSpace(r.Title)
	out.OwnerID = strings.TrimSpace(r.OwnerID)
	out.Goals = compactStrings(r.Goals)
	out.Tasks = compactStrings(r.Tasks)

	if out.BoardType == "" {
		out.BoardType = DefaultBoardType
	}
	if out.LayoutStyle == "" {
		out.LayoutStyle = DefaultLayoutStyle
	}
	if out.Aesthetic == "" {
		out.Aesthetic = DefaultAesthetic
	}
	if r.Challenge != nil {
		c := *r.Challenge
		out.Challenge = &c
	}
	return out
}

// Validate 校验请求。应在 Normalize 之后调用。
func (r GenerationRequest) Validate() *Error {
	if len(r.Goals) == 0 {
		return NewError(ErrInvalidRequest, "goals must contain at least one entry").WithHTTPStatus(400)
	}
	if !r.BoardType.Valid() {
		return NewError(ErrInvalidRequest, fmt.Sprintf("invalid boardType %q", r.BoardType)).WithHTTPStatus(400)
	}
	if !r.LayoutStyle.Valid() {
		return NewError(ErrInvalidRequest, fmt.Sprintf("invalid layoutStyle %q", r.LayoutStyle)).WithHTTPStatus(400)
	}
	if !r.Aesthetic.Valid() {
		return NewError(ErrInvalidRequest, fmt.Sprintf("invalid aesthetic %q", r.Aesthetic)).WithHTTPStatus(400)
	}
	return nil
}

func compactStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// =============================================================================
// 🔁 尝试与评估
// =============================================================================

// Attempt 单次循环迭代的记录。Score 仅在评估实际运行时存在。
type Attempt struct {
	AttemptNumber int    `json:"attemptNumber"`
	Prompt        string `json:"prompt"`
	ImageProduced bool   `json:"imageProduced"`
	Score         *int   `json:"score,omitempty"`
	Feedback      string `json:"feedback,omitempty"`
	Improvements  string `json:"improvements,omitempty"`
}

// EffectiveScore 未评估的尝试按 0 分处理
func (a Attempt) EffectiveScore() int {
	if a.Score == nil {
		return 0
	}
	return *a.Score
}

// EvaluationResult 评估器输出，Score 永远存在
type EvaluationResult struct {
	Score        int    `json:"score"`
	Feedback     string `json:"feedback"`
	Improvements string `json:"improvements"`
}

// MaxScore 评分上限
const MaxScore = 10
