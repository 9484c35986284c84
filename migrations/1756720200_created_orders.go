package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("orders")

		collection.Fields.Add(
			&core.TextField{Name: "item", Required: true},
			&core.TextField{Name: "item_name"},
			&core.TextField{Name: "channel"},
			&core.TextField{Name: "seller_uid", Required: true},
			&core.TextField{Name: "buyer_uid", Required: true},
			&core.NumberField{Name: "amount", Required: true},
			&core.TextField{Name: "status"},
			&core.TextField{Name: "ref_code"},
			&core.TextField{Name: "settlement_ref"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// One order per item, enforced by the store as well as the
		// settlement claim.
		collection.AddIndex("idx_orders_item", true, "item", "")
		collection.AddIndex("idx_orders_seller", false, "seller_uid", "")
		collection.AddIndex("idx_orders_buyer", false, "buyer_uid", "")
		collection.AddIndex("idx_orders_ref_code", false, "ref_code", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("orders")
		if err != nil {
			return nil
		}
		return app.Delete(collection)
	})
}
