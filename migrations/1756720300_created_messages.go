package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("messages")

		collection.Fields.Add(
			&core.TextField{Name: "channel", Required: true},
			&core.TextField{Name: "uid", Required: true},
			&core.TextField{Name: "name"},
			&core.TextField{Name: "text", Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_messages_channel_created", false, "channel, created", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("messages")
		if err != nil {
			return nil
		}
		return app.Delete(collection)
	})
}
