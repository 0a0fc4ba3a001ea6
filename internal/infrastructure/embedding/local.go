package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// LocalEmbedder 无外部依赖的词袋哈希向量化。
// 同一文本永远得到同一向量，语义相近的文本共享词桶因而相似度更高。
// 供未配置向量化服务的本地环境使用。
type LocalEmbedder struct {
	dimension int
}

// NewLocalEmbedder 创建本地向量化器
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = 768
	}
	return &LocalEmbedder{dimension: dimension}
}

// Dimension 返回向量维度
func (e *LocalEmbedder) Dimension() int {
	return e.dimension
}

// Embed 把每个词哈希进固定桶并做 L2 归一化
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(strings.Trim(word, ".,;:!?\"'")))
			vec[h.Sum32()%uint32(e.dimension)]++
		}
		normalize(vec)
		out[i] = vec
	}
	return out, nil
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
