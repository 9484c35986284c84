package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("alerts")

		collection.Fields.Add(
			&core.TextField{Name: "uid", Required: true},
			&core.TextField{Name: "title"},
			&core.TextField{Name: "message"},
			&core.BoolField{Name: "read"},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		collection.AddIndex("idx_alerts_uid_created", false, "uid, created", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("alerts")
		if err != nil {
			return nil
		}
		return app.Delete(collection)
	})
}
