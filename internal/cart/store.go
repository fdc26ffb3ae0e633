package cart

import (
	"context"
	"sync"

	"github.com/bazaar-next/internal/constants"
	"github.com/bazaar-next/internal/pricing"

	"github.com/shopspring/decimal"
)

// Snapshot 持久化的购物车快照
type Snapshot struct {
	Items        []Item          `json:"items"`
	Discount     decimal.Decimal `json:"discount"`
	RewardPoints int64           `json:"reward_points"`
	RewardValue  decimal.Decimal `json:"reward_value"`
	// WeightsKg 为 true 时商品重量已换算为千克，水合时不再换算
	WeightsKg    bool            `json:"weights_kg"`
}

// Store 购物车状态容器：Reduce + 埋点 + 变更回调
type Store struct {
	mu       sync.Mutex
	policy   pricing.Policy
	state    State
	tracker  Tracker
	onChange func(Snapshot)
	hydrated bool
}

// NewStore 创建空购物车
func NewStore(policy pricing.Policy, tracker Tracker) *Store {
	if tracker == nil {
		tracker = noopTracker{}
	}
	return &Store{
		policy:  policy,
		state:   recompute(policy, Empty()),
		tracker: tracker,
	}
}

// OnChange 注册快照回调，仅在水合完成后触发
func (s *Store) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// State 当前状态副本
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Snapshot 当前快照
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshotOf(s.state)
}

// Dispatch 执行动作，上报埋点并触发快照回调
func (s *Store) Dispatch(ctx context.Context, action Action) (State, error) {
	s.mu.Lock()
	before := s.state
	next, err := Reduce(s.policy, before, action)
	if err != nil {
		s.mu.Unlock()
		return before.clone(), err
	}
	s.state = next
	onChange := s.onChange
	hydrated := s.hydrated
	snap := snapshotOf(next)
	s.mu.Unlock()

	for _, event := range deriveEvents(before, next, action, constants.DefaultCurrency) {
		s.tracker.Track(ctx, event)
	}
	if hydrated && onChange != nil {
		onChange(snap)
	}
	return next.clone(), nil
}

// Hydrate 通过逐件 ADD_ITEM 重放快照恢复状态，过程中不上报埋点
// 一楼自提与弹窗状态沿用水合前的值；外部快照的重量在此换算一次
func (s *Store) Hydrate(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := recompute(s.policy, Empty())
	state.GroundFloorPickup = s.state.GroundFloorPickup
	state.ModalOpen = s.state.ModalOpen
	for _, item := range snap.Items {
		if !snap.WeightsKg {
			item.Weight = pricing.NormalizeWeight(item.Weight)
		}
		for i := 0; i < item.Quantity; i++ {
			next, err := Reduce(s.policy, state, Action{Type: ActionAddItem, Item: &item})
			if err != nil {
				return err
			}
			state = next
		}
	}
	state.RewardPoints = snap.RewardPoints
	state.RewardValue = snap.RewardValue
	if snap.Discount.Sign() > 0 && len(state.Items) > 0 {
		points := snap.Discount.Div(s.policy.PointValue).Floor().IntPart()
		next, err := Reduce(s.policy, state, Action{Type: ActionRedeemPoints, Points: points, Value: snap.Discount})
		if err != nil {
			return err
		}
		state = next
	}
	s.state = state
	s.hydrated = true
	return nil
}

func snapshotOf(state State) Snapshot {
	items := make([]Item, len(state.Items))
	copy(items, state.Items)
	return Snapshot{
		Items:        items,
		Discount:     state.Discount,
		RewardPoints: state.RewardPoints,
		RewardValue:  state.RewardValue,
		WeightsKg:    true,
	}
}
