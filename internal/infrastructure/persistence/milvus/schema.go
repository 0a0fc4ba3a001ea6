package milvus

import (
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionChapterMemory 章节摘要向量集合
	CollectionChapterMemory = "chapter_memory"
)

// ChapterMemorySchema 章节摘要 Collection Schema。
// 主键为 project_id:chapter_number，保证同章覆盖写。
func ChapterMemorySchema(dimension int) *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionChapterMemory,
		Description:    "Chapter summary vectors for retrieval-augmented generation",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "80",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dimension),
				},
			},
			{
				Name:     "project_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "chapter_number",
				DataType: entity.FieldTypeInt64,
			},
		},
	}
}

// MemoryKey 章节向量的主键
func MemoryKey(projectID string, chapterNumber int) string {
	return fmt.Sprintf("%s:%d", projectID, chapterNumber)
}

// PartitionName 生成项目分区名称；分区名只允许字母数字和下划线
func PartitionName(projectID string) string {
	return "proj_" + strings.ReplaceAll(projectID, "-", "_")
}
