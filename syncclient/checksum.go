package syncclient

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Checksum digests the rows of a download payload as
// "collection|id|watermark" lines in wire order. Both ends compute it from
// decoded rows, so it is independent of JSON formatting.
func Checksum(c *Collections) string {
	var b strings.Builder
	for _, t := range c.Tables {
		writeRow(&b, CollectionTables, t.ID, t.UpdatedAt)
	}
	for _, p := range c.Products {
		writeRow(&b, CollectionProducts, p.ID, p.UpdatedAt)
	}
	for _, o := range c.Orders {
		writeRow(&b, CollectionOrders, o.ID, o.UpdatedAt)
	}
	for _, i := range c.OrderItems {
		writeRow(&b, CollectionOrderItems, i.ID, i.UpdatedAt)
	}
	for _, s := range c.Sales {
		writeRow(&b, CollectionSales, s.ID, s.UpdatedAt)
	}
	for _, m := range c.StockMovements {
		writeRow(&b, CollectionStockMovements, m.ID, m.CreatedAt)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum recomputes the digest of a download response. A response
// without a checksum passes.
func VerifyChecksum(resp *DownloadResponse) bool {
	if resp.Checksum == "" {
		return true
	}
	return Checksum(&resp.Collections) == resp.Checksum
}

func writeRow(b *strings.Builder, collection, id string, watermark time.Time) {
	fmt.Fprintf(b, "%s|%s|%s\n", collection, id, watermark.UTC().Format(time.RFC3339Nano))
}
