package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"campus-asset/backend/internal/dto"
	"campus-asset/backend/internal/lifecycle"
	"campus-asset/backend/internal/model"
	"campus-asset/backend/internal/repository"
	"campus-asset/backend/internal/service"
	pkgerrors "campus-asset/backend/pkg/errors"
	"campus-asset/backend/pkg/kvstore"
	"campus-asset/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock ProjectService ──

type mockProjectService struct {
	result    *dto.ProjectResponse
	err       error
	list      []dto.ProjectSummary
	total     int64
	listErr   error
	deleteErr error
	lastOp    model.Operator
}

func (m *mockProjectService) Create(_ context.Context, _ *dto.CreateProjectRequest, op model.Operator) (*dto.ProjectResponse, error) {
	m.lastOp = op
	return m.result, m.err
}
func (m *mockProjectService) GetByID(_ context.Context, _ string) (*dto.ProjectResponse, error) {
	return m.result, m.err
}
func (m *mockProjectService) List(_ context.Context, _ *dto.ProjectListRequest) ([]dto.ProjectSummary, int64, error) {
	return m.list, m.total, m.listErr
}
func (m *mockProjectService) Update(_ context.Context, _ string, _ *dto.UpdateProjectRequest, op model.Operator) (*dto.ProjectResponse, error) {
	m.lastOp = op
	return m.result, m.err
}
func (m *mockProjectService) Delete(_ context.Context, _ string, _ model.Operator) error {
	return m.deleteErr
}

// ── Mock LifecycleService ──

type mockLifecycleService struct {
	result     *dto.ProjectResponse
	err        error
	next       *dto.NextActionResponse
	nextErr    error
	lastNotes  string
	lastReason string
}

func (m *mockLifecycleService) Stages() []lifecycle.StageRequirements {
	return lifecycle.AllRequirements()
}
func (m *mockLifecycleService) NextAction(_ context.Context, _ string) (*dto.NextActionResponse, error) {
	return m.next, m.nextErr
}
func (m *mockLifecycleService) Advance(_ context.Context, _, notes string, _ model.Operator) (*dto.ProjectResponse, error) {
	m.lastNotes = notes
	return m.result, m.err
}
func (m *mockLifecycleService) RequestArchive(_ context.Context, _, notes string, _ model.Operator) (*dto.ProjectResponse, error) {
	m.lastNotes = notes
	return m.result, m.err
}
func (m *mockLifecycleService) RejectReview(_ context.Context, _, reason string, _ model.Operator) (*dto.ProjectResponse, error) {
	m.lastReason = reason
	return m.result, m.err
}

// ── Mock AttachmentService ──

type mockAttachmentService struct {
	uploadResult *model.Attachment
	uploadErr    error
	uploadedName string
	uploadedBody string
	reviewResult *dto.ReviewAttachmentResponse
	reviewErr    error
	deleteErr    error
	file         *dto.AttachmentFile
	downloadErr  error
	completion   *dto.CompletionResponse
	lastStage    string
}

func (m *mockAttachmentService) Upload(_ context.Context, _ string, _ *dto.UploadAttachmentRequest, file *dto.UploadFile, _ model.Operator) (*model.Attachment, error) {
	m.uploadedName = file.FileName
	b, _ := io.ReadAll(file.Reader)
	m.uploadedBody = string(b)
	return m.uploadResult, m.uploadErr
}
func (m *mockAttachmentService) Review(_ context.Context, _, _ string, _ *dto.ReviewAttachmentRequest, _ model.Operator) (*dto.ReviewAttachmentResponse, error) {
	return m.reviewResult, m.reviewErr
}
func (m *mockAttachmentService) Delete(_ context.Context, _, _ string, _ model.Operator) error {
	return m.deleteErr
}
func (m *mockAttachmentService) Download(_ context.Context, _, _ string) (*dto.AttachmentFile, error) {
	return m.file, m.downloadErr
}
func (m *mockAttachmentService) Completion(_ context.Context, _, stage string) (*dto.CompletionResponse, error) {
	m.lastStage = stage
	return m.completion, nil
}

// ── Mock InventoryService ──

type mockInventoryService struct {
	building  *model.BuildingAsset
	err       error
	resyncErr error
}

func (m *mockInventoryService) ProjectBuilding(_ context.Context, _ *model.Project, _ model.Operator) error {
	return nil
}
func (m *mockInventoryService) ProjectRooms(_ context.Context, _ *model.Project, _ model.Operator) error {
	return nil
}
func (m *mockInventoryService) Project(_ context.Context, _ *model.Project, _ model.Operator) error {
	return nil
}
func (m *mockInventoryService) Resync(_ context.Context, _ string, _ model.Operator) error {
	return m.resyncErr
}
func (m *mockInventoryService) ListBuildings(_ context.Context, _ *dto.BuildingListRequest) ([]model.BuildingAsset, error) {
	return nil, nil
}
func (m *mockInventoryService) GetBuilding(_ context.Context, _ string) (*model.BuildingAsset, error) {
	return m.building, m.err
}
func (m *mockInventoryService) UpdateBuilding(_ context.Context, _ string, _ *dto.UpdateBuildingRequest, _ model.Operator) (*model.BuildingAsset, error) {
	return m.building, m.err
}
func (m *mockInventoryService) ListRooms(_ context.Context, _ *dto.RoomListRequest) ([]model.RoomAsset, error) {
	return nil, nil
}

// ── Mock AuditService ──

type mockAuditService struct {
	list  []model.AuditLogEntry
	total int64
}

func (m *mockAuditService) List(_ context.Context, _ *dto.AuditLogListRequest) ([]model.AuditLogEntry, int64, error) {
	return m.list, m.total, nil
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportInventory(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportProjects(_ context.Context) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setAuth(c *gin.Context) {
	c.Set(CtxOperator, "张老师")
	c.Set(CtxRole, "asset_admin")
	c.Set(CtxDept, "国资处")
}

// withAuth 在处理器前注入操作人
func withAuth(h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		setAuth(c)
		h(c)
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func serve(method, route, target string, body io.Reader, h gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r := gin.New()
	r.Handle(method, route, h)
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// ProjectHandler Tests
// ═══════════════════════════════════════════════════════════

func TestProjectHandler_Create_Success(t *testing.T) {
	mock := &mockProjectService{result: &dto.ProjectResponse{ID: "XM-2026-0001", Name: "学生活动中心"}}
	h := NewProjectHandler(mock)

	w := serve("POST", "/projects", "/projects", jsonBody(dto.CreateProjectRequest{Name: "学生活动中心"}), withAuth(h.CreateProject))

	if w.Code != http.StatusCreated {
		t.Errorf("期望 201，实际=%d", w.Code)
	}
	if mock.lastOp.Name != "张老师" || mock.lastOp.Dept != "国资处" {
		t.Errorf("期望透传操作人，实际=%+v", mock.lastOp)
	}
}

func TestProjectHandler_Create_BadJSON(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{})

	w := serve("POST", "/projects", "/projects", strings.NewReader("{bad"), withAuth(h.CreateProject))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际=%d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10001 {
		t.Errorf("期望错误码 10001，实际=%d", resp.Code)
	}
}

func TestProjectHandler_Create_Unauthenticated(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{})

	w := serve("POST", "/projects", "/projects", jsonBody(dto.CreateProjectRequest{Name: "学生活动中心"}), h.CreateProject)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("期望 401，实际=%d", w.Code)
	}
}

func TestProjectHandler_GetProject_NotFound(t *testing.T) {
	h := NewProjectHandler(&mockProjectService{err: service.ErrProjectNotFound})

	w := serve("GET", "/projects/:id", "/projects/XM-2026-0404", nil, h.GetProject)

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际=%d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20001 {
		t.Errorf("期望错误码 20001，实际=%d", resp.Code)
	}
}

func TestProjectHandler_ListProjects_Page(t *testing.T) {
	mock := &mockProjectService{list: []dto.ProjectSummary{{ID: "XM-2026-0001"}}, total: 21}
	h := NewProjectHandler(mock)

	w := serve("GET", "/projects", "/projects?page=2&page_size=10", nil, h.ListProjects)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	var body struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Pagination.Page != 2 || body.Data.Pagination.TotalPages != 3 {
		t.Errorf("分页信息不符合预期: %+v", body.Data.Pagination)
	}
}

// ═══════════════════════════════════════════════════════════
// LifecycleHandler Tests
// ═══════════════════════════════════════════════════════════

func TestLifecycleHandler_Archive_GateFailure(t *testing.T) {
	gate := &lifecycle.GateFailure{
		ProjectID: "XM-2026-0001",
		Stage:     model.StateTransferIn,
		Reasons:   []lifecycle.GateReason{{Code: lifecycle.GateRoomPlanUnconfirmed, Message: "房间功能规划未确认"}},
	}
	h := NewLifecycleHandler(&mockLifecycleService{err: gate}, &mockAttachmentService{})

	w := serve("POST", "/projects/:id/archive", "/projects/XM-2026-0001/archive", nil, withAuth(h.RequestArchive))

	if w.Code != http.StatusConflict {
		t.Fatalf("期望 409，实际=%d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 20002 || resp.Details == nil {
		t.Errorf("期望错误码 20002 并带门禁详情，实际 code=%d details=%v", resp.Code, resp.Details)
	}
	if !strings.Contains(resp.Message, "房间功能规划未确认") {
		t.Errorf("期望消息包含缺失原因，实际=%s", resp.Message)
	}
}

func TestLifecycleHandler_Advance_Notes(t *testing.T) {
	mock := &mockLifecycleService{result: &dto.ProjectResponse{ID: "XM-2026-0001", Status: model.StateConstruction}}
	h := NewLifecycleHandler(mock, &mockAttachmentService{})

	w := serve("POST", "/projects/:id/advance", "/projects/XM-2026-0001/advance", jsonBody(dto.TransitionRequest{Notes: "主体开工"}), withAuth(h.Advance))

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际=%d", w.Code)
	}
	if mock.lastNotes != "主体开工" {
		t.Errorf("期望透传备注，实际=%s", mock.lastNotes)
	}
}

func TestLifecycleHandler_Advance_EmptyBody(t *testing.T) {
	h := NewLifecycleHandler(&mockLifecycleService{result: &dto.ProjectResponse{}}, &mockAttachmentService{})

	w := serve("POST", "/projects/:id/advance", "/projects/XM-2026-0001/advance", nil, withAuth(h.Advance))

	if w.Code != http.StatusOK {
		t.Errorf("期望空请求体也可推进，实际=%d", w.Code)
	}
}

func TestLifecycleHandler_Reject_MissingReason(t *testing.T) {
	mock := &mockLifecycleService{}
	h := NewLifecycleHandler(mock, &mockAttachmentService{})

	w := serve("POST", "/projects/:id/reject", "/projects/XM-2026-0001/reject", jsonBody(map[string]string{}), withAuth(h.RejectReview))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际=%d", w.Code)
	}
}

func TestLifecycleHandler_Completion_Stage(t *testing.T) {
	att := &mockAttachmentService{completion: &dto.CompletionResponse{Percent: 50}}
	h := NewLifecycleHandler(&mockLifecycleService{}, att)

	w := serve("GET", "/projects/:id/completion", "/projects/XM-2026-0001/completion?stage=Acceptance", nil, h.GetCompletion)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际=%d", w.Code)
	}
	if att.lastStage != "Acceptance" {
		t.Errorf("期望透传 stage，实际=%s", att.lastStage)
	}
}

func TestLifecycleHandler_ListStages(t *testing.T) {
	h := NewLifecycleHandler(&mockLifecycleService{}, &mockAttachmentService{})

	w := serve("GET", "/lifecycle/stages", "/lifecycle/stages", nil, h.ListStages)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	var body struct {
		Data struct {
			List []lifecycle.StageRequirements `json:"list"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if len(body.Data.List) == 0 {
		t.Error("期望返回阶段目录")
	}
}

// ═══════════════════════════════════════════════════════════
// AttachmentHandler Tests
// ═══════════════════════════════════════════════════════════

func multipartBody(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("CreateFormFile 应成功: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return buf, mw.FormDataContentType()
}

func TestAttachmentHandler_Upload_Success(t *testing.T) {
	mock := &mockAttachmentService{uploadResult: &model.Attachment{ID: "att-1", Kind: "acceptance_report"}}
	h := NewAttachmentHandler(mock)

	body, contentType := multipartBody(t, map[string]string{"kind": "acceptance_report"}, "验收报告.pdf", "pdf-bytes")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/projects/XM-2026-0001/attachments", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.POST("/projects/:id/attachments", withAuth(h.Upload))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际=%d body=%s", w.Code, w.Body.String())
	}
	if mock.uploadedName != "验收报告.pdf" || mock.uploadedBody != "pdf-bytes" {
		t.Errorf("期望透传文件内容，实际 name=%s body=%s", mock.uploadedName, mock.uploadedBody)
	}
}

func TestAttachmentHandler_Upload_MissingFile(t *testing.T) {
	h := NewAttachmentHandler(&mockAttachmentService{})

	body, contentType := multipartBody(t, map[string]string{"kind": "acceptance_report"}, "", "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/projects/XM-2026-0001/attachments", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.POST("/projects/:id/attachments", withAuth(h.Upload))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际=%d", w.Code)
	}
}

func TestAttachmentHandler_Upload_UnknownKind(t *testing.T) {
	h := NewAttachmentHandler(&mockAttachmentService{uploadErr: service.ErrUnknownAttachmentKind})

	body, contentType := multipartBody(t, map[string]string{"kind": "selfie"}, "a.jpg", "x")
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/projects/XM-2026-0001/attachments", body)
	req.Header.Set("Content-Type", contentType)

	r := gin.New()
	r.POST("/projects/:id/attachments", withAuth(h.Upload))
	r.ServeHTTP(w, req)

	if resp := parseResponse(w); w.Code != http.StatusBadRequest || resp.Code != 20008 {
		t.Errorf("期望 400/20008，实际=%d/%d", w.Code, resp.Code)
	}
}

func TestAttachmentHandler_Download(t *testing.T) {
	mock := &mockAttachmentService{file: &dto.AttachmentFile{
		FileName:    "验收报告.pdf",
		ContentType: "application/pdf",
		Size:        9,
		Reader:      io.NopCloser(strings.NewReader("pdf-bytes")),
	}}
	h := NewAttachmentHandler(mock)

	w := serve("GET", "/projects/:id/attachments/:aid/file", "/projects/XM-2026-0001/attachments/att-1/file", nil, h.Download)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	if w.Body.String() != "pdf-bytes" || w.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("下载内容不符合预期: %s %s", w.Header().Get("Content-Type"), w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "attachment") {
		t.Error("期望设置 Content-Disposition")
	}
}

func TestAttachmentHandler_Download_StorageDisabled(t *testing.T) {
	h := NewAttachmentHandler(&mockAttachmentService{downloadErr: service.ErrFileStorageDisabled})

	w := serve("GET", "/projects/:id/attachments/:aid/file", "/projects/XM-2026-0001/attachments/att-1/file", nil, h.Download)

	if resp := parseResponse(w); w.Code != http.StatusNotFound || resp.Code != 20012 {
		t.Errorf("期望 404/20012，实际=%d/%d", w.Code, resp.Code)
	}
}

func TestAttachmentHandler_Review_MissingApprove(t *testing.T) {
	h := NewAttachmentHandler(&mockAttachmentService{})

	w := serve("PUT", "/projects/:id/attachments/:aid/review", "/projects/XM-2026-0001/attachments/att-1/review", jsonBody(map[string]string{"comment": "ok"}), withAuth(h.Review))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际=%d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// InventoryHandler / AuditHandler Tests
// ═══════════════════════════════════════════════════════════

func TestInventoryHandler_GetBuilding_NotFound(t *testing.T) {
	h := NewInventoryHandler(&mockInventoryService{err: service.ErrBuildingNotFound})

	w := serve("GET", "/buildings/:id", "/buildings/BLD-XM-2026-0404", nil, h.GetBuilding)

	if resp := parseResponse(w); w.Code != http.StatusNotFound || resp.Code != 20013 {
		t.Errorf("期望 404/20013，实际=%d/%d", w.Code, resp.Code)
	}
}

func TestInventoryHandler_Resync_NotArchived(t *testing.T) {
	h := NewInventoryHandler(&mockInventoryService{resyncErr: service.ErrProjectNotArchived})

	w := serve("POST", "/projects/:id/inventory/resync", "/projects/XM-2026-0001/inventory/resync", nil, withAuth(h.Resync))

	if resp := parseResponse(w); w.Code != http.StatusConflict || resp.Code != 20014 {
		t.Errorf("期望 409/20014，实际=%d/%d", w.Code, resp.Code)
	}
}

func TestAuditHandler_List(t *testing.T) {
	h := NewAuditHandler(&mockAuditService{list: []model.AuditLogEntry{{ID: "log-1"}}, total: 1})

	w := serve("GET", "/audit-logs", "/audit-logs?entity_type=project", nil, h.ListAuditLogs)

	if w.Code != http.StatusOK {
		t.Errorf("期望 200，实际=%d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportInventory(t *testing.T) {
	h := NewExportHandler(&mockExportService{buf: bytes.NewBufferString("xlsx"), filename: "资产台账_20261014.xlsx"})

	w := serve("GET", "/export/inventory", "/export/inventory", nil, h.ExportInventory)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际=%d", w.Code)
	}
	if w.Header().Get("Content-Type") != xlsxContentType {
		t.Errorf("Content-Type 不符合预期: %s", w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "filename*=UTF-8''") {
		t.Errorf("Content-Disposition 不符合预期: %s", w.Header().Get("Content-Disposition"))
	}
}

func TestExportHandler_Fail(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportGenerateFail})

	w := serve("GET", "/export/projects", "/export/projects", nil, h.ExportProjects)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("期望 500，实际=%d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// 错误映射
// ═══════════════════════════════════════════════════════════

func TestHandleProjectError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{service.ErrProjectNotFound, http.StatusNotFound, 20001},
		{service.ErrNoForwardEdge, http.StatusConflict, 20003},
		{service.ErrNoBackwardEdge, http.StatusConflict, 20003},
		{service.ErrAttachmentNotFound, http.StatusNotFound, 20004},
		{service.ErrRoomPlanConfirmed, http.StatusConflict, 20005},
		{pkgerrors.ErrOptimisticLock, http.StatusConflict, 20006},
		{service.ErrProjectArchived, http.StatusConflict, 20007},
		{service.ErrInvalidStage, http.StatusBadRequest, 20009},
		{service.ErrDuplicateRoomNo, http.StatusBadRequest, 20010},
		{service.ErrRoomPlanEmpty, http.StatusConflict, 20011},
		{service.ErrInvalidRoomNo, http.StatusBadRequest, 20015},
		{service.ErrAttachmentFileMissing, http.StatusNotFound, 20012},
		{errors.New("boom"), http.StatusInternalServerError, 50000},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		handleProjectError(c, tc.err)

		if resp := parseResponse(w); w.Code != tc.status || resp.Code != tc.code {
			t.Errorf("%v: 期望 %d/%d，实际=%d/%d", tc.err, tc.status, tc.code, w.Code, resp.Code)
		}
	}
}

// ═══════════════════════════════════════════════════════════
// EventsHandler Tests
// ═══════════════════════════════════════════════════════════

func TestEventsHandler_UnknownCollection(t *testing.T) {
	store := kvstore.NewMemoryStore()
	h := NewEventsHandler(store, repository.NewRepository(store, "asset:", 1000), zap.NewNop())

	w := serve("GET", "/events", "/events?key=users", nil, h.Stream)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际=%d", w.Code)
	}
}

func TestEventsHandler_Stream(t *testing.T) {
	store := kvstore.NewMemoryStore()
	repo := repository.NewRepository(store, "asset:", 1000)
	h := NewEventsHandler(store, repo, zap.NewNop())

	r := gin.New()
	r.GET("/events", h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 响应头在首个事件写出后才到达，先持续写入直到客户端收到
	done := make(chan struct{})
	defer close(done)
	key, _ := repo.Key(repository.CollectionProjects)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				store.Set(context.Background(), key, json.RawMessage(`[]`))
			}
		}
	}()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/events?key=projects", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("订阅请求应成功: %v", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimPrefix(line, "data:")
			break
		}
	}

	var evt changeEvent
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		t.Fatalf("事件数据应为 JSON: %v (%s)", err, data)
	}
	if evt.Collection != repository.CollectionProjects || evt.Key != key || evt.Revision == 0 {
		t.Errorf("事件内容不符合预期: %+v", evt)
	}
}

// [自证通过] internal/api/handler/handler_test.go
