package ai

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

const (
	chunkTokenBudget  = 400
	chunkOverlapLimit = 80
)

// ChunkPiece is one span of contract text produced by splitting, in
// document order. Number is the 0-based position within the document.
type ChunkPiece struct {
	Text       string
	Number     int
	TokenCount int
}

// Chunker splits contract text (markdown or plain prose) into
// retrieval-sized pieces. Section headings flush the running window and
// are prefixed onto every piece under them so a clause keeps its
// section context when embedded in isolation.
type Chunker struct{}

func NewChunker() *Chunker {
	return &Chunker{}
}

func (c *Chunker) Chunk(ctx context.Context, content string) []ChunkPiece {
	logger := logutil.GetLogger(ctx)
	md := goldmark.New()
	reader := text.NewReader([]byte(content))
	doc := md.Parser().Parse(reader)

	var pieces []ChunkPiece
	var current []string
	var currentTokens int
	var currentHeading string
	number := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		body := strings.Join(current, "\n\n")
		if currentHeading != "" {
			body = "Section: " + currentHeading + "\n" + body
		}
		pieces = append(pieces, ChunkPiece{
			Text:       body,
			Number:     number,
			TokenCount: estimateTokens(body),
		})
		number++

		// Carry a short tail forward so clause boundaries that straddle
		// a window split stay findable from both pieces.
		if len(current) > 1 {
			overlapTokens := 0
			var overlap []string
			for i := len(current) - 1; i >= 0; i-- {
				t := estimateTokens(current[i])
				if overlapTokens+t > chunkOverlapLimit {
					break
				}
				overlapTokens += t
				overlap = append([]string{current[i]}, overlap...)
			}
			current = overlap
			currentTokens = overlapTokens
		} else {
			current = nil
			currentTokens = 0
		}
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok && heading.Level <= 2 {
			flush()
			current = nil
			currentTokens = 0
			currentHeading = string(heading.Text(reader.Source()))
			continue
		}
		txt := extractText(node, reader.Source())
		if txt == "" {
			continue
		}
		tokens := estimateTokens(txt)
		if currentTokens > 0 && currentTokens+tokens > chunkTokenBudget {
			flush()
		}
		current = append(current, txt)
		currentTokens += tokens
	}
	flush()

	logger.Debug("contract text chunked", zap.Int("size", len(content)), zap.Int("chunks", len(pieces)))
	return pieces
}

func estimateTokens(text string) int {
	count := 0
	for _, r := range text {
		if r > 127 {
			count++
		}
	}
	count += len(strings.Fields(text))
	if count == 0 && len(text) > 0 {
		return 1
	}
	return count
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
