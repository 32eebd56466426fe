package analyze

// 解析指示。容器・配置・食材のみを記述させ、カメラ角度や遠近法への言及を
// 明示的に禁止する。角度はプロンプト合成側が別軸で制御するため、
// 解析側が角度を記述すると下流で指示が衝突する
const visionPrompt = `Analyze this bento image for a commercial photography prompt.
Extract the following visual details accurately:

1. CONTAINER: Describe the material, shape, color, and pattern of the bento box (e.g., wood-grain paper box, black plastic, round, rectangular).
2. LAYOUT: Describe specifically where each food item is placed (e.g., Grilled salmon on the center-left, Tamagoyaki on the top-right).
3. FOOD: List all food items with visual details (texture, color).

IMPORTANT: Do NOT describe the camera angle, shooting angle, or perspective (e.g., high-angle, overhead, low-angle).
Only describe the container, food arrangement, and food details.

Format the output as a descriptive paragraph for image generation.
Answer in English.`

// メタデータ抽出指示。後ろに解析テキストを連結して使う
const metadataPromptHeader = `Based on this bento description, generate the following metadata in JSON format:
- title: A short Japanese title (max 20 characters, e.g., "ハンバーグ弁当", "幕の内弁当")
- description: A brief Japanese description (max 50 characters)
- tags: An array of 3-5 Japanese search tags (e.g., ["ハンバーグ", "和食", "唐揚げ"])

Return ONLY valid JSON in this exact format:
{
  "title": "...",
  "description": "...",
  "tags": ["...", "...", "..."]
}

Bento description:
`
