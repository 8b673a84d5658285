package schema

import (
	"github.com/oncepay/oncepay/ent/schema/mixins"

	"entgo.io/ent"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Payment is the business side effect guarded by an idempotency key.
type Payment struct {
	ent.Schema
}

func (Payment) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "payments"},
	}
}

func (Payment) Mixin() []ent.Mixin {
	return []ent.Mixin{
		mixins.TimeMixin{},
	}
}

func (Payment) Fields() []ent.Field {
	return []ent.Field{
		field.String("idempotency_key").MaxLen(128),
		field.String("user_id").MaxLen(128),
		field.Int64("amount_cents"),
		field.String("currency").MaxLen(8),
	}
}

func (Payment) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("idempotency_key").Unique(),
		index.Fields("user_id"),
	}
}
