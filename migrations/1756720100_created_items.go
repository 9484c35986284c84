package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("items")

		collection.Fields.Add(
			&core.TextField{Name: "channel", Required: true},
			&core.TextField{Name: "name", Required: true},
			&core.NumberField{Name: "starting_price", Required: true},
			&core.NumberField{Name: "duration_sec"},
			&core.TextField{Name: "status"},
			&core.NumberField{Name: "highest_bid"},
			&core.TextField{Name: "highest_bidder"},
			&core.DateField{Name: "ends_at"},
			&core.DateField{Name: "last_bid_at"},
			&core.TextField{Name: "order_id"},
			&core.URLField{Name: "image_url"},
			&core.TextField{Name: "category"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_items_channel", false, "channel", "")
		collection.AddIndex("idx_items_channel_status", false, "channel, status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("items")
		if err != nil {
			return nil
		}
		return app.Delete(collection)
	})
}
