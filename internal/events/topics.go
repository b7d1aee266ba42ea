package events

// Topics emitted by the pricing and promotion engine.
const (
	TopicPromoApplied      = "promo.applied"
	TopicPromoRemoved      = "promo.removed"
	TopicGiftCardPurchased = "giftcard.purchased"
	TopicGiftCardRedeemed  = "giftcard.redeemed"
	TopicCheckoutCommitted = "checkout.committed"
)
