package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("channels")

		collection.Fields.Add(
			&core.TextField{Name: "channel", Required: true},
			&core.TextField{Name: "seller_uid", Required: true},
			&core.TextField{Name: "status"},
			&core.TextField{Name: "current_item_id"},
			&core.TextField{Name: "category"},
			&core.URLField{Name: "thumbnail_url"},
			&core.BoolField{Name: "featured"},
			&core.NumberField{Name: "viewer_count"},
			&core.NumberField{Name: "rating"},
			&core.NumberField{Name: "review_count"},
			&core.DateField{Name: "started_at"},
			&core.DateField{Name: "ended_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_channels_channel", true, "channel", "")
		collection.AddIndex("idx_channels_status", false, "status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("channels")
		if err != nil {
			return nil
		}
		return app.Delete(collection)
	})
}
