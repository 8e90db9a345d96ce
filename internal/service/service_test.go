package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/marketplace-system/internal/model"
	"github.com/mmeshcher/marketplace-system/internal/repository"
)

type stubRepo struct {
	account    *model.Account
	accountErr error

	tokenResp string
	tokenErr  error

	profile    *model.Profile
	profileErr error

	offer      *model.Offer
	offerErr   error
	summary    *model.OfferSummary
	summaryErr error
	detail     *model.OfferDetail
	detailErr  error

	offersResp  []model.OfferSummary
	offersTotal int64
	offersErr   error
	gotFilter   repository.OfferFilter

	order        *model.Order
	orderErr     error
	createdOrder *model.Order
	ordersResp   []model.Order
	countResp    int64

	review       *model.Review
	reviewErr    error
	reviewExists bool
	reviewsResp  []model.Review

	baseInfo    *model.BaseInfo
	baseInfoErr error
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateAccount(ctx context.Context, username, email string, passwordHash []byte, role model.Role) (*model.Account, error) {
	return s.account, s.accountErr
}

func (s *stubRepo) GetAccountByID(ctx context.Context, id int64) (*model.Account, error) {
	return s.account, s.accountErr
}

func (s *stubRepo) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	return s.account, s.accountErr
}

func (s *stubRepo) GetAccountByRoleSeq(ctx context.Context, role model.Role, seq int64) (*model.Account, error) {
	return s.account, s.accountErr
}

func (s *stubRepo) TouchLastLogin(ctx context.Context, accountID int64) error { return nil }

func (s *stubRepo) GetOrCreateToken(ctx context.Context, accountID int64, newKey string) (string, error) {
	if s.tokenResp != "" || s.tokenErr != nil {
		return s.tokenResp, s.tokenErr
	}
	return newKey, nil
}

func (s *stubRepo) GetAccountByToken(ctx context.Context, key string) (*model.Account, error) {
	return s.account, s.accountErr
}

func (s *stubRepo) GetProfile(ctx context.Context, accountID int64) (*model.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubRepo) ListProfilesByRole(ctx context.Context, role model.Role) ([]model.Profile, error) {
	return nil, nil
}

func (s *stubRepo) UpdateProfile(ctx context.Context, accountID int64, patch model.ProfilePatch) (*model.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubRepo) CreateOffer(ctx context.Context, offer *model.Offer) (*model.Offer, error) {
	if s.offerErr != nil {
		return nil, s.offerErr
	}
	return offer, nil
}

func (s *stubRepo) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	return s.offer, s.offerErr
}

func (s *stubRepo) GetOfferSummary(ctx context.Context, id int64) (*model.OfferSummary, error) {
	return s.summary, s.summaryErr
}

func (s *stubRepo) ListOffers(ctx context.Context, f repository.OfferFilter) ([]model.OfferSummary, int64, error) {
	s.gotFilter = f
	return s.offersResp, s.offersTotal, s.offersErr
}

func (s *stubRepo) UpdateOffer(ctx context.Context, id int64, patch model.OfferPatch) (*model.Offer, error) {
	return s.offer, s.offerErr
}

func (s *stubRepo) DeleteOffer(ctx context.Context, id int64) error { return s.offerErr }

func (s *stubRepo) GetOfferDetail(ctx context.Context, id int64) (*model.OfferDetail, error) {
	return s.detail, s.detailErr
}

func (s *stubRepo) CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	s.createdOrder = order
	return order, s.orderErr
}

func (s *stubRepo) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubRepo) ListOrdersByCustomer(ctx context.Context, customerSeq int64) ([]model.Order, error) {
	return s.ordersResp, nil
}

func (s *stubRepo) ListOrdersByBusiness(ctx context.Context, businessSeq int64) ([]model.Order, error) {
	return s.ordersResp, nil
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubRepo) DeleteOrder(ctx context.Context, id int64) error { return s.orderErr }

func (s *stubRepo) CountOrdersByStatus(ctx context.Context, businessSeq int64, status model.OrderStatus) (int64, error) {
	return s.countResp, nil
}

func (s *stubRepo) CreateReview(ctx context.Context, businessID, reviewerID int64, rating int, description string) (*model.Review, error) {
	return s.review, s.reviewErr
}

func (s *stubRepo) GetReview(ctx context.Context, id int64) (*model.Review, error) {
	return s.review, s.reviewErr
}

func (s *stubRepo) ReviewExists(ctx context.Context, businessID, reviewerID int64) (bool, error) {
	return s.reviewExists, nil
}

func (s *stubRepo) ListReviews(ctx context.Context, f repository.ReviewFilter) ([]model.Review, error) {
	return s.reviewsResp, nil
}

func (s *stubRepo) UpdateReview(ctx context.Context, id int64, rating *int, description *string) (*model.Review, error) {
	return s.review, s.reviewErr
}

func (s *stubRepo) DeleteReview(ctx context.Context, id int64) error { return s.reviewErr }

func (s *stubRepo) GetBaseInfo(ctx context.Context) (*model.BaseInfo, error) {
	return s.baseInfo, s.baseInfoErr
}

func customerAccount() *model.Account {
	return &model.Account{ID: 1, Username: "customer", Role: model.RoleCustomer, RoleSeq: 1}
}

func businessAccount() *model.Account {
	return &model.Account{ID: 2, Username: "business", Role: model.RoleBusiness, RoleSeq: 1}
}

func threeDetails() []OfferDetailInput {
	return []OfferDetailInput{
		{Title: "basic", Revisions: 1, DeliveryDays: 3, PriceCents: 1000, Tier: model.TierBasic},
		{Title: "standard", Revisions: 2, DeliveryDays: 2, PriceCents: 2000, Tier: model.TierStandard},
		{Title: "premium", Revisions: 3, DeliveryDays: 1, PriceCents: 3000, Tier: model.TierPremium},
	}
}

func TestRegisterAccount_PasswordMismatch(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.RegisterAccount(context.Background(), RegisterInput{
		Username:         "user",
		Email:            "user@example.com",
		Password:         "pass",
		RepeatedPassword: "other",
		Type:             model.RoleCustomer,
	})
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestRegisterAccount_InvalidType(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.RegisterAccount(context.Background(), RegisterInput{
		Username:         "user",
		Email:            "user@example.com",
		Password:         "pass",
		RepeatedPassword: "pass",
		Type:             model.Role("admin"),
	})
	if !errors.Is(err, ErrInvalidUserType) {
		t.Fatalf("expected ErrInvalidUserType, got %v", err)
	}
}

func TestRegisterAccount_InvalidEmail(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.RegisterAccount(context.Background(), RegisterInput{
		Username:         "user",
		Email:            "not-an-email",
		Password:         "pass",
		RepeatedPassword: "pass",
		Type:             model.RoleCustomer,
	})
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRegisterAccount_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{accountErr: repository.ErrUsernameTaken}
	svc := NewService(repo, 0)

	_, err := svc.RegisterAccount(context.Background(), RegisterInput{
		Username:         "user",
		Email:            "user@example.com",
		Password:         "pass",
		RepeatedPassword: "pass",
		Type:             model.RoleCustomer,
	})
	if !errors.Is(err, repository.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	repo := &stubRepo{
		account: &model.Account{ID: 1, Username: "user", PasswordHash: hashed},
	}
	svc := NewService(repo, 0)

	_, err = svc.Login(context.Background(), "user", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownAccount(t *testing.T) {
	repo := &stubRepo{accountErr: repository.ErrAccountNotFound}
	svc := NewService(repo, 0)

	_, err := svc.Login(context.Background(), "nobody", "pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateProfile_OnlyOwner(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.UpdateProfile(context.Background(), customerAccount(), 99, model.ProfilePatch{})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCreateOffer_OnlyBusiness(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.CreateOffer(context.Background(), customerAccount(), OfferInput{
		Title:   "logo design",
		Details: threeDetails(),
	})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCreateOffer_RequiresThreeDetails(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.CreateOffer(context.Background(), businessAccount(), OfferInput{
		Title:   "logo design",
		Details: threeDetails()[:2],
	})
	if !errors.Is(err, ErrDetailCount) {
		t.Fatalf("expected ErrDetailCount, got %v", err)
	}
}

func TestCreateOffer_RejectsDuplicateTier(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	details := threeDetails()
	details[2].Tier = model.TierBasic

	_, err := svc.CreateOffer(context.Background(), businessAccount(), OfferInput{
		Title:   "logo design",
		Details: details,
	})
	if !errors.Is(err, ErrDuplicateTier) {
		t.Fatalf("expected ErrDuplicateTier, got %v", err)
	}
}

func TestCreateOffer_RejectsInvalidDetailValues(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	details := threeDetails()
	details[0].DeliveryDays = 0

	_, err := svc.CreateOffer(context.Background(), businessAccount(), OfferInput{
		Title:   "logo design",
		Details: details,
	})
	if !errors.Is(err, ErrInvalidDetail) {
		t.Fatalf("expected ErrInvalidDetail, got %v", err)
	}
}

func TestListOffers_PageBelowOne(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.ListOffers(context.Background(), OfferListParams{Page: 0})
	if !errors.Is(err, ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
}

func TestListOffers_EmptyPageBeyondFirst(t *testing.T) {
	repo := &stubRepo{offersResp: []model.OfferSummary{}, offersTotal: 4}
	svc := NewService(repo, 6)

	_, err := svc.ListOffers(context.Background(), OfferListParams{Page: 3})
	if !errors.Is(err, ErrPageRange) {
		t.Fatalf("expected ErrPageRange, got %v", err)
	}
}

func TestListOffers_OffsetMath(t *testing.T) {
	repo := &stubRepo{
		offersResp:  []model.OfferSummary{{ID: 1}},
		offersTotal: 20,
	}
	svc := NewService(repo, 6)

	page, err := svc.ListOffers(context.Background(), OfferListParams{Page: 3})
	if err != nil {
		t.Fatalf("ListOffers error: %v", err)
	}

	if repo.gotFilter.Limit != 6 {
		t.Fatalf("limit = %d, want 6", repo.gotFilter.Limit)
	}
	if repo.gotFilter.Offset != 12 {
		t.Fatalf("offset = %d, want 12", repo.gotFilter.Offset)
	}
	if page.Count != 20 || page.Page != 3 || page.PageSize != 6 {
		t.Fatalf("unexpected page meta: %+v", page)
	}
}

func TestCreateOrder_CopiesDetailFields(t *testing.T) {
	repo := &stubRepo{
		detail: &model.OfferDetail{
			ID:           7,
			OfferID:      3,
			Title:        "standard package",
			Revisions:    2,
			DeliveryDays: 5,
			PriceCents:   12550,
			Features:     []string{"source file"},
			Tier:         model.TierStandard,
		},
		offer: &model.Offer{ID: 3, OwnerSeq: 9},
	}
	svc := NewService(repo, 0)

	order, err := svc.CreateOrder(context.Background(), customerAccount(), 7)
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if order.CustomerSeq != 1 || order.BusinessSeq != 9 {
		t.Fatalf("order parties = %d/%d, want 1/9", order.CustomerSeq, order.BusinessSeq)
	}
	if order.Title != "standard package" || order.PriceCents != 12550 {
		t.Fatalf("order did not copy detail fields: %+v", order)
	}
	if order.Status != model.OrderStatusInProgress {
		t.Fatalf("status = %q, want %q", order.Status, model.OrderStatusInProgress)
	}
}

func TestCreateOrder_OnlyCustomer(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.CreateOrder(context.Background(), businessAccount(), 7)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestUpdateOrderStatus_InvalidStatus(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.UpdateOrderStatus(context.Background(), businessAccount(), 1, model.OrderStatus("done"))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateOrderStatus_OnlyBusinessParty(t *testing.T) {
	repo := &stubRepo{
		order: &model.Order{ID: 1, CustomerSeq: 1, BusinessSeq: 5, Status: model.OrderStatusInProgress},
	}
	svc := NewService(repo, 0)

	// Бизнес-аккаунт с другим порядковым номером.
	_, err := svc.UpdateOrderStatus(context.Background(), businessAccount(), 1, model.OrderStatusCompleted)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for foreign business, got %v", err)
	}

	_, err = svc.UpdateOrderStatus(context.Background(), customerAccount(), 1, model.OrderStatusCompleted)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied for customer, got %v", err)
	}
}

func TestDeleteOrder_OnlyStaff(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	if err := svc.DeleteOrder(context.Background(), customerAccount(), 1); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	staff := customerAccount()
	staff.IsStaff = true
	if err := svc.DeleteOrder(context.Background(), staff, 1); err != nil {
		t.Fatalf("DeleteOrder by staff error: %v", err)
	}
}

func TestCountOrders_UnknownBusiness(t *testing.T) {
	repo := &stubRepo{accountErr: repository.ErrAccountNotFound}
	svc := NewService(repo, 0)

	_, err := svc.CountOrders(context.Background(), 99, model.OrderStatusInProgress)
	if !errors.Is(err, repository.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestCreateReview_OnlyCustomer(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.CreateReview(context.Background(), businessAccount(), 1, 5, "great")
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCreateReview_InvalidRating(t *testing.T) {
	svc := NewService(&stubRepo{}, 0)

	_, err := svc.CreateReview(context.Background(), customerAccount(), 1, 6, "great")
	if !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
}

func TestCreateReview_Duplicate(t *testing.T) {
	repo := &stubRepo{
		account:      businessAccount(),
		reviewExists: true,
	}
	svc := NewService(repo, 0)

	_, err := svc.CreateReview(context.Background(), customerAccount(), 1, 5, "great")
	if !errors.Is(err, repository.ErrReviewExists) {
		t.Fatalf("expected ErrReviewExists, got %v", err)
	}
}

func TestUpdateReview_OnlyAuthor(t *testing.T) {
	repo := &stubRepo{
		review: &model.Review{ID: 1, ReviewerID: 77},
	}
	svc := NewService(repo, 0)

	rating := 4
	_, err := svc.UpdateReview(context.Background(), customerAccount(), 1, &rating, nil)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestDeleteReview_OnlyAuthor(t *testing.T) {
	repo := &stubRepo{
		review: &model.Review{ID: 1, ReviewerID: 77},
	}
	svc := NewService(repo, 0)

	if err := svc.DeleteReview(context.Background(), customerAccount(), 1); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestGetBaseInfo_RoundsAverageRating(t *testing.T) {
	repo := &stubRepo{
		baseInfo: &model.BaseInfo{
			ReviewCount:          3,
			AverageRating:        4.266666,
			BusinessProfileCount: 2,
			OfferCount:           5,
		},
	}
	svc := NewService(repo, 0)

	info, err := svc.GetBaseInfo(context.Background())
	if err != nil {
		t.Fatalf("GetBaseInfo error: %v", err)
	}
	if info.AverageRating != 4.3 {
		t.Fatalf("AverageRating = %v, want 4.3", info.AverageRating)
	}
}
