package history

import "bento-pro-server/modules/common/model"

// Record - 履歴一覧・詳細応答の1エントリ
type Record struct {
	ID string `json:"id"`
	model.RecordMetadata
}

// EditPatch - 編集可能フィールドの部分更新
// nil のフィールドは変更しない
type EditPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Favorite    *bool     `json:"favorite"`
}
