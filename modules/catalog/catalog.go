package catalog

import "fmt"

// UnknownOptionError - 列挙にないスタイル値が渡された場合のエラー
// プロンプト合成まで到達してはいけないプログラミングエラー扱い
type UnknownOptionError struct {
	Axis  string
	Label string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown %s option: %q", e.Axis, e.Label)
}

// Background - 背景サーフェス
type Background string

const (
	BackgroundWhite  Background = "white"
	BackgroundBlack  Background = "black"
	BackgroundWood   Background = "wood"
	BackgroundMarble Background = "marble"
	BackgroundWashi  Background = "washi"
)

var backgroundFragments = map[Background]string{
	BackgroundWhite:  "clean white background",
	BackgroundBlack:  "matte black background",
	BackgroundWood:   "natural wood grain table surface",
	BackgroundMarble: "elegant marble table surface",
	BackgroundWashi:  "traditional Japanese washi paper background",
}

// Fragment - 背景の英語フレーズ
func (b Background) Fragment() (string, error) {
	if f, ok := backgroundFragments[b]; ok {
		return f, nil
	}
	return "", &UnknownOptionError{Axis: "background", Label: string(b)}
}

// Angle - 撮影角度（カメラの高さ・俯瞰度）
// 数値ではなく完全な遠近法の説明文を持つ。下流の生成モデルは
// パラメータではなく指示文に従うため
type Angle string

const (
	AngleAngled45 Angle = "angled_45"
	AngleOverhead Angle = "overhead"
)

var angleFragments = map[Angle]string{
	AngleAngled45: "The camera is positioned at a moderate height above the table, looking down at the bento box at approximately 30-40 degrees from horizontal. This angle shows both the top surface of the food AND the front vertical side wall of the container clearly, creating depth while maintaining visibility of contents.",
	AngleOverhead: "The camera is positioned DIRECTLY overhead at 90 degrees, perfectly perpendicular to the table surface. Pure bird's eye view looking STRAIGHT DOWN. NO angle whatsoever - completely flat, top-down perspective.",
}

// Fragment - カメラ視点の説明文
func (a Angle) Fragment() (string, error) {
	if f, ok := angleFragments[a]; ok {
		return f, nil
	}
	return "", &UnknownOptionError{Axis: "angle", Label: string(a)}
}

// Lighting - 照明スタイル
type Lighting string

const (
	LightingStudio   Lighting = "studio"
	LightingNatural  Lighting = "natural"
	LightingDramatic Lighting = "dramatic"
)

var lightingFragments = map[Lighting]string{
	LightingStudio:   "Bright, even studio lighting (high-key). Soft shadows. The food looks fresh, glossy, vibrant, and appetizing.",
	LightingNatural:  "Soft, natural window light. Gentle shadows. The food looks fresh, natural, and inviting.",
	LightingDramatic: "Dramatic side lighting with strong shadows. The food looks bold, artistic, and textured.",
}

// Fragment - 照明の英語フレーズ
func (l Lighting) Fragment() (string, error) {
	if f, ok := lightingFragments[l]; ok {
		return f, nil
	}
	return "", &UnknownOptionError{Axis: "lighting", Label: string(l)}
}

// Margin - 余白サイズ（構図指定。縁が見切れないことを常に保証する）
type Margin string

const (
	MarginStandard Margin = "standard"
	MarginWide     Margin = "wide"
)

var marginFragments = map[Margin]string{
	MarginStandard: "With some negative space around the bento box. A little breathing room on the table surface. Not cropped tightly. Centered composition. The entire bento box must fit completely within the frame with NO edges cut off.",
	MarginWide:     "Ample negative space. Vast empty table surface surrounding the bento box. Minimalist composition with lots of empty space. Long shot. The bento box is small in the center of the large frame. The entire bento box must fit completely within the frame with NO edges cut off.",
}

// Fragment - 余白・構図の英語フレーズ
func (m Margin) Fragment() (string, error) {
	if f, ok := marginFragments[m]; ok {
		return f, nil
	}
	return "", &UnknownOptionError{Axis: "margin", Label: string(m)}
}

// Rotation - テーブル上での弁当の物理的な向き
// 命令形ルールと人間向け説明の両方を持つ
type Rotation string

const (
	RotationFrontal  Rotation = "frontal"
	RotationDiagonal Rotation = "diagonal"
)

type rotationFragment struct {
	rule        string
	description string
}

var rotationFragments = map[Rotation]rotationFragment{
	RotationFrontal: {
		rule:        "**[Crucial: Orientation & Alignment]**\n* The bento box is NOT rotated diagonally on the table surface.\n* The edges of the box are perfectly parallel to the frame edges (top edge parallel to top of frame, sides parallel to sides of frame).\n* NO rotation whatsoever. The box maintains a straight, unrotated position.",
		description: "The box faces the camera squarely.",
	},
	RotationDiagonal: {
		rule:        "**[Crucial: Orientation & Alignment]**\n* The bento box IS rotated diagonally on the table surface.\n* The box is tilted approximately 45 degrees CLOCKWISE (from viewer's perspective).\n* One corner of the box points towards the top of the frame, creating a diamond-like orientation.",
		description: "Creates dynamic diagonal depth.",
	},
}

// Rule - 生成プロンプト先頭に置く命令形ルール
func (r Rotation) Rule() (string, error) {
	if f, ok := rotationFragments[r]; ok {
		return f.rule, nil
	}
	return "", &UnknownOptionError{Axis: "rotation", Label: string(r)}
}

// Description - 人間向けの短い説明
func (r Rotation) Description() (string, error) {
	if f, ok := rotationFragments[r]; ok {
		return f.description, nil
	}
	return "", &UnknownOptionError{Axis: "rotation", Label: string(r)}
}

// AspectRatio - 出力画像サイズ
type AspectRatio string

const (
	AspectSquare    AspectRatio = "square"
	AspectPortrait  AspectRatio = "portrait"
	AspectLandscape AspectRatio = "landscape"
)

type aspectFragment struct {
	clause string
	ratio  string
}

var aspectFragments = map[AspectRatio]aspectFragment{
	AspectSquare: {
		clause: "**[Output Format]**\nGenerate the output image in SQUARE format with 1:1 aspect ratio (width equals height).",
		ratio:  "1:1",
	},
	AspectPortrait: {
		clause: "**[Output Format]**\nGenerate the output image in PORTRAIT/VERTICAL format with 3:4 aspect ratio (width:height = 3:4, taller than wide).",
		ratio:  "3:4",
	},
	AspectLandscape: {
		clause: "**[Output Format]**\nGenerate the output image in LANDSCAPE/HORIZONTAL format with 4:3 aspect ratio (width:height = 4:3, wider than tall).",
		ratio:  "4:3",
	},
}

// Clause - 生成プロンプト末尾に付ける出力フォーマット指定
func (a AspectRatio) Clause() (string, error) {
	if f, ok := aspectFragments[a]; ok {
		return f.clause, nil
	}
	return "", &UnknownOptionError{Axis: "aspect_ratio", Label: string(a)}
}

// Ratio - Gemini ImageConfig 用の比率文字列 ("1:1" など)
func (a AspectRatio) Ratio() (string, error) {
	if f, ok := aspectFragments[a]; ok {
		return f.ratio, nil
	}
	return "", &UnknownOptionError{Axis: "aspect_ratio", Label: string(a)}
}

// ContainerClean - 容器汚れ補正
type ContainerClean string

const (
	CleanNone      ContainerClean = "none"
	CleanRequested ContainerClean = "clean"
)

// Valid - 列挙メンバーかどうか
func (c ContainerClean) valid() bool {
	return c == CleanNone || c == CleanRequested
}

// Requested - 補正が要求されているか
func (c ContainerClean) Requested() bool {
	return c == CleanRequested
}

// StyleSelection - 各軸から1つずつ選んだスタイル設定
type StyleSelection struct {
	Background     Background     `json:"background"`
	Angle          Angle          `json:"angle"`
	Lighting       Lighting       `json:"lighting"`
	Margin         Margin         `json:"margin"`
	Rotation       Rotation       `json:"rotation"`
	AspectRatio    AspectRatio    `json:"aspect_ratio"`
	ContainerClean ContainerClean `json:"container_clean"`
}

// Validate - 全軸が列挙メンバーであることを検証する
func (s StyleSelection) Validate() error {
	if _, err := s.Background.Fragment(); err != nil {
		return err
	}
	if _, err := s.Angle.Fragment(); err != nil {
		return err
	}
	if _, err := s.Lighting.Fragment(); err != nil {
		return err
	}
	if _, err := s.Margin.Fragment(); err != nil {
		return err
	}
	if _, err := s.Rotation.Rule(); err != nil {
		return err
	}
	if _, err := s.AspectRatio.Clause(); err != nil {
		return err
	}
	if !s.ContainerClean.valid() {
		return &UnknownOptionError{Axis: "container_clean", Label: string(s.ContainerClean)}
	}
	return nil
}

// Options - 軸ごとの選択肢一覧（フロント向け）
func Options() map[string][]string {
	return map[string][]string{
		"background":      {string(BackgroundWhite), string(BackgroundBlack), string(BackgroundWood), string(BackgroundMarble), string(BackgroundWashi)},
		"angle":           {string(AngleAngled45), string(AngleOverhead)},
		"lighting":        {string(LightingStudio), string(LightingNatural), string(LightingDramatic)},
		"margin":          {string(MarginStandard), string(MarginWide)},
		"rotation":        {string(RotationFrontal), string(RotationDiagonal)},
		"aspect_ratio":    {string(AspectSquare), string(AspectPortrait), string(AspectLandscape)},
		"container_clean": {string(CleanNone), string(CleanRequested)},
	}
}
