package semantic

import (
	"fmt"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
)

// PointID derives a stable UUID from the chunk's position in the corpus.
// Qdrant requires UUID point IDs, and deterministic IDs make upserts
// idempotent across rebuilds.
func PointID(c domain.Chunk) string {
	key := fmt.Sprintf("%s|%d|%d", c.DocID, c.PageNo, c.ChunkNo)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func encodePayload(c domain.Chunk) map[string]*pb.Value {
	return map[string]*pb.Value{
		"doc_id":    {Kind: &pb.Value_StringValue{StringValue: c.DocID}},
		"file_name": {Kind: &pb.Value_StringValue{StringValue: c.FileName}},
		"page_no":   {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.PageNo)}},
		"chunk_no":  {Kind: &pb.Value_IntegerValue{IntegerValue: int64(c.ChunkNo)}},
		"text":      {Kind: &pb.Value_StringValue{StringValue: c.Text}},
	}
}

func decodePayload(payload map[string]*pb.Value) domain.Chunk {
	return domain.Chunk{
		DocID:    payload["doc_id"].GetStringValue(),
		FileName: payload["file_name"].GetStringValue(),
		PageNo:   int(payload["page_no"].GetIntegerValue()),
		ChunkNo:  int(payload["chunk_no"].GetIntegerValue()),
		Text:     payload["text"].GetStringValue(),
	}
}
