// Package prompt renders provider requests. Every builder is a pure function of
// its input so the output can be checked by snapshot.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/price"
	"github.com/kailas-cloud/bookscout/internal/domain/price/extract"
)

// PriceSchemaName names the structured price answer.
const PriceSchemaName = "book_prices"

const priceSystem = `You are a book price research assistant. Search the web for current retail prices ` +
	`of the requested book. Only report offers you actually found, each with the retailer name, ` +
	`the numeric price, the format (new, used or ebook) and a direct product URL. ` +
	`Respond with JSON only, no prose and no markdown.`

const enhanceSystem = `You rewrite book search queries for a semantic search engine. Expand the query ` +
	`with closely related genres, themes and synonyms a reader would expect. Keep the original intent. ` +
	`Reply with the rewritten query only, on a single line, without quotes or commentary.`

var priceSchema = mustMarshal(jsonschema.Definition{
	Type:                 jsonschema.Object,
	AdditionalProperties: false,
	Required:             []string{"summary", extract.PricesKey},
	Properties: map[string]jsonschema.Definition{
		"summary": {
			Type:        jsonschema.String,
			Description: "One or two sentences on availability and the price range found",
		},
		extract.PricesKey: {
			Type: jsonschema.Array,
			Items: &jsonschema.Definition{
				Type:                 jsonschema.Object,
				AdditionalProperties: false,
				Required:             []string{"retailer", "price", "type", "url"},
				Properties: map[string]jsonschema.Definition{
					"retailer": {Type: jsonschema.String},
					"price":    {Type: jsonschema.Number, Description: "Price as a plain number, no currency symbol"},
					"type": {
						Type: jsonschema.String,
						Enum: []string{string(price.ConditionNew), string(price.ConditionUsed), string(price.ConditionEbook)},
					},
					"url": {Type: jsonschema.String, Description: "Absolute http(s) product URL"},
				},
			},
		},
	},
})

// PriceSchema returns the JSON Schema attached to price lookups.
func PriceSchema() *domain.Schema {
	return &domain.Schema{Name: PriceSchemaName, Definition: priceSchema}
}

// PriceLookup renders the grounded retailer-price request for one book.
func PriceLookup(l price.Lookup) domain.GenerateRequest {
	var b strings.Builder
	fmt.Fprintf(&b, "Find current prices for the book %q by %s", l.Title(), l.Author())
	if l.ISBN() != "" {
		fmt.Fprintf(&b, " (ISBN %s)", l.ISBN())
	}
	b.WriteString(".\n\n")
	b.WriteString("Check major retailers such as Amazon, Barnes & Noble, Bookshop.org, ThriftBooks, " +
		"AbeBooks, Books-A-Million and ebook stores.\n\n")
	b.WriteString("Return a JSON object of the form:\n")
	b.WriteString(`{"summary": "...", "prices": [{"retailer": "Amazon", "price": 12.99, "type": "new", "url": "https://..."}]}`)
	b.WriteString("\nUse type \"new\", \"used\" or \"ebook\". Return an empty prices array when nothing is found.")

	return domain.GenerateRequest{
		System:    priceSystem,
		Prompt:    b.String(),
		Schema:    PriceSchema(),
		WebSearch: true,
	}
}

// QueryEnhancement renders the query rewrite request.
func QueryEnhancement(query string) domain.GenerateRequest {
	return domain.GenerateRequest{
		System: enhanceSystem,
		Prompt: "Query: " + query,
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
