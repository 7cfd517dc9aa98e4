package user

import (
	"time"

	"ddd-users/domain/shared"
)

// Props 用户聚合属性
// 使用值对象而非原始类型，避免构造出领域上不可能存在的用户
type Props struct {
	Email           Email
	Username        Username
	Password        Password
	IsEmailVerified bool
	IsAdminUser     bool
	AccessToken     JWTToken
	RefreshToken    RefreshToken
	IsDeleted       bool
	LastLogin       time.Time
}

// User 用户聚合根
// 所有状态变更通过行为方法进行，行为方法记录领域事件，
// 事件在工作单元提交后由分发注册表统一分发
type User struct {
	shared.AggregateRoot[Props]

	version int // 乐观锁版本号，0 表示尚未持久化
}

// New 创建新用户，记录 UserCreated 事件
// marker 通常是分发注册表，由调用方注入
func New(props Props, marker shared.Marker) (*User, error) {
	if err := guardProps(props); err != nil {
		return nil, err
	}

	u := &User{AggregateRoot: shared.NewAggregateRoot(props, shared.NewUniqueEntityID(), marker)}
	u.AddDomainEvent(NewUserCreated(u))
	return u, nil
}

// Rebuild 从持久化数据重建用户聚合根，不记录任何事件
// ⚠️ 仅应在仓储实现中使用
func Rebuild(props Props, id shared.UniqueEntityID, version int, marker shared.Marker) (*User, error) {
	if id.IsZero() {
		return nil, shared.NewValidationError("user", "id", "id is required to rebuild a user")
	}
	if err := guardProps(props); err != nil {
		return nil, err
	}
	return &User{AggregateRoot: shared.NewAggregateRoot(props, id, marker), version: version}, nil
}

func guardProps(props Props) error {
	result := shared.AgainstNilOrEmptyBulk([]shared.GuardArgument{
		{Argument: props.Username, Name: "username"},
		{Argument: props.Email, Name: "email"},
		{Argument: props.Password, Name: "password"},
	})
	if !result.Succeeded {
		return NewMissingPropsError(result.Message)
	}
	return nil
}

// Delete 逻辑删除，重复调用不再记录事件
func (u *User) Delete() {
	if u.Props.IsDeleted {
		return
	}
	u.Props.IsDeleted = true
	u.AddDomainEvent(NewUserDeleted(u))
}

// SetAccessToken 记录登录令牌与登录时间
func (u *User) SetAccessToken(access JWTToken, refresh RefreshToken) error {
	if u.Props.IsDeleted {
		return NewUserDeletedError(u.ID().String())
	}
	u.Props.AccessToken = access
	u.Props.RefreshToken = refresh
	u.Props.LastLogin = time.Now()
	u.AddDomainEvent(NewUserLoggedIn(u))
	return nil
}

// VerifyEmail 标记邮箱已验证，只在首次验证时记录事件
func (u *User) VerifyEmail() {
	if u.Props.IsEmailVerified {
		return
	}
	u.Props.IsEmailVerified = true
	u.AddDomainEvent(NewEmailVerified(u))
}

func (u *User) Version() int { return u.version }
func (u *User) IsNew() bool  { return u.version == 0 }

// IncrementVersion is called by repositories after a successful write.
func (u *User) IncrementVersion() { u.version++ }

func (u *User) UserID() UserID { return UserID{id: u.ID()} }

func (u *User) Email() Email               { return u.Props.Email }
func (u *User) Username() Username         { return u.Props.Username }
func (u *User) Password() Password         { return u.Props.Password }
func (u *User) IsEmailVerified() bool      { return u.Props.IsEmailVerified }
func (u *User) IsAdminUser() bool          { return u.Props.IsAdminUser }
func (u *User) AccessToken() JWTToken      { return u.Props.AccessToken }
func (u *User) RefreshToken() RefreshToken { return u.Props.RefreshToken }
func (u *User) IsDeleted() bool            { return u.Props.IsDeleted }
func (u *User) LastLogin() time.Time       { return u.Props.LastLogin }
func (u *User) IsLoggedIn() bool           { return u.Props.AccessToken != "" && u.Props.RefreshToken != "" }

// UserID 用户标识值对象
type UserID struct {
	id shared.UniqueEntityID
}

func NewUserID(id shared.UniqueEntityID) UserID { return UserID{id: id} }

func (u UserID) ID() shared.UniqueEntityID { return u.id }
func (u UserID) String() string            { return u.id.String() }
func (u UserID) Equals(other UserID) bool  { return u.id.Equals(other.id) }

var _ shared.Aggregate = (*User)(nil)
