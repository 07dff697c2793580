package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/store"
)

// Sales fixture catalog.
const (
	RegionLabel  = "label.region"
	OrderDateSet = "dataset.order_date"
	AmountFact   = "fact.amount"
	RegionURI    = "/gdc/md/ws1/obj/1"
	OrderDateURI = "/gdc/md/ws1/obj/2"
	AmountURI    = "/gdc/md/ws1/obj/3"
	SalesInsight = "insight.sales"
	SalesURI     = "/gdc/md/ws1/obj/100"
)

// SalesDataset returns a small sales dataset for workspace: four orders
// over three regions, one with a null amount. Summed by region it gives
// East 150, North null, West 30.
func SalesDataset(workspace string) store.Dataset {
	return store.Dataset{
		Workspace: workspace,
		Columns: []store.Column{
			{Name: "region", Type: store.ColumnText},
			{Name: "order_date", Type: store.ColumnDate},
			{Name: "amount", Type: store.ColumnNumber},
		},
		Rows: [][]any{
			{"East", "2024-01-05", 100},
			{"East", "2024-02-10", decimal.RequireFromString("50")},
			{"West", "2024-01-20", 30},
			{"North", "2024-03-01", nil},
		},
		Catalog: []store.CatalogItem{
			{Kind: store.KindLabel, Identifier: RegionLabel, URI: RegionURI, Column: "region", Title: "Region"},
			{Kind: store.KindDataSet, Identifier: OrderDateSet, URI: OrderDateURI, Column: "order_date", Title: "Order date"},
			{Kind: store.KindFact, Identifier: AmountFact, URI: AmountURI, Column: "amount", Title: "Amount"},
		},
		LoadedAt: time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC),
	}
}

// SalesDatasetYAML is SalesDataset("ws1") as a dataset document, plus a
// saved insight summing amount by region.
const SalesDatasetYAML = `workspace: ws1
columns:
  - {name: region, type: text}
  - {name: order_date, type: date}
  - {name: amount, type: number}
rows:
  - [East, "2024-01-05", 100]
  - [East, "2024-02-10", 50]
  - [West, "2024-01-20", 30]
  - [North, "2024-03-01", null]
catalog:
  - {kind: label, identifier: label.region, uri: /gdc/md/ws1/obj/1, column: region, title: Region}
  - {kind: dataset, identifier: dataset.order_date, uri: /gdc/md/ws1/obj/2, column: order_date, title: Order date}
  - {kind: fact, identifier: fact.amount, uri: /gdc/md/ws1/obj/3, column: amount, title: Amount}
insights:
  - identifier: insight.sales
    uri: /gdc/md/ws1/obj/100
    title: Sales by region
    buckets:
      - localIdentifier: measures
        items:
          - measure:
              localIdentifier: m1
              item: {identifier: fact.amount, type: fact}
              aggregation: sum
      - localIdentifier: view
        items:
          - attribute:
              localIdentifier: a1
              displayForm: {identifier: label.region, type: displayForm}
`

// SalesByRegionYAML is a definition document summing amount by region.
const SalesByRegionYAML = `workspace: ws1
buckets:
  - localIdentifier: measures
    items:
      - measure:
          localIdentifier: m1
          item: {identifier: fact.amount, type: fact}
          aggregation: sum
  - localIdentifier: view
    items:
      - attribute:
          localIdentifier: a1
          displayForm: {identifier: label.region, type: displayForm}
`
