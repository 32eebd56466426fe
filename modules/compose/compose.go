// Package compose は解析結果とスタイル設定から生成指示文を組み立てる。
// 同一入力からは常にバイト単位で同一のプロンプトを生成する
// （履歴に保存する full_prompt の監査可能性のため）。
package compose

import (
	"fmt"
	"strings"

	"bento-pro-server/modules/catalog"
)

// Prompts - 合成結果
// Informational は履歴表示・監査用、Generation が実際に画像生成へ送る指示文
type Prompts struct {
	Informational string
	Generation    string
}

// 生成プロンプト冒頭の絶対制約。生成呼び出しには元写真が参照画像として
// 渡されるため、スタイルのみ変更し内容は変更しないことを明示する
const criticalConstraints = "**CRITICAL CONSTRAINTS - MUST FOLLOW EXACTLY:**\n" +
	"1. Keep the EXACT container type, material, color, and shape shown in the input image.\n" +
	"2. Keep the EXACT food arrangement and portion sizes shown in the input image. Do NOT add extra food."

// 容器清掃指示（選択された場合のみ）。容器表面に限定し、中身の変更を禁止する
const containerCleanInstruction = "CONTAINER CLEANING:\n" +
	"- Clean any sauce stains, oil marks, or liquid spills on the bento box container surfaces (walls, edges, exterior)\n" +
	"- The container should look pristine and clean\n" +
	"- CRITICAL: Do NOT alter, change, or modify the food contents inside the compartments\n" +
	"- Only clean the container itself, not the food"

// Compose - プロンプト合成
// セクション順序は固定: 向きルール → カメラ角度 → 環境・構図 → 照明 → (清掃) → 内容 → 出力フォーマット
// 向きルールは生成モデルに最も無視されやすいため先頭に置く。
// 解析テキストは最後に置き、スタイル指示を優先させる。
func Compose(style catalog.StyleSelection, analyzedContent string) (Prompts, error) {
	if err := style.Validate(); err != nil {
		return Prompts{}, err
	}
	if strings.TrimSpace(analyzedContent) == "" {
		return Prompts{}, fmt.Errorf("analyzed content is empty")
	}

	// 検証済みのため以降の参照は失敗しない
	rotationRule, _ := style.Rotation.Rule()
	angleFragment, _ := style.Angle.Fragment()
	backgroundFragment, _ := style.Background.Fragment()
	marginFragment, _ := style.Margin.Fragment()
	lightingFragment, _ := style.Lighting.Fragment()
	aspectClause, _ := style.AspectRatio.Clause()

	cameraSetup := fmt.Sprintf("**[Camera Angle & Perspective]**\n* %s", angleFragment)

	environment := fmt.Sprintf("**[Environment & Composition]**\n* The bento box is placed on a %s.\n* %s",
		backgroundFragment, marginFragment)

	lightingSection := fmt.Sprintf("**[Lighting & Style]**\n* %s\n* NO steam, NO vapor. 8k resolution, highly detailed.",
		lightingFragment)

	contents := fmt.Sprintf("**[Contents Description]**\n%s", analyzedContent)

	// 監査用プロンプト（清掃・出力フォーマット指定は含まない）
	informational := strings.Join([]string{
		"Professional commercial food photography.",
		rotationRule,
		cameraSetup,
		environment,
		lightingSection,
		contents,
	}, "\n\n")

	// 生成プロンプト
	generationSections := []string{
		"Refine this specific image into a professional commercial food photography style.",
		criticalConstraints,
		rotationRule,
		cameraSetup,
		environment,
		lightingSection,
	}
	if style.ContainerClean.Requested() {
		generationSections = append(generationSections, containerCleanInstruction)
	}
	generationSections = append(generationSections, contents, aspectClause)

	return Prompts{
		Informational: informational,
		Generation:    strings.Join(generationSections, "\n\n"),
	}, nil
}
